package agentloop

import (
	"context"
	"sync"
	"time"

	"github.com/OmBiradar/deepruster/unifiedllm"
)

// Generator produces a free-form model response for a prompt. system may
// be empty.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeneratorConfig configures a ClientGenerator.
type GeneratorConfig struct {
	Model       string
	Provider    string
	Temperature *float64
	MaxTokens   *int
	Retry       *unifiedllm.RetryPolicy
}

// GenerationStats totals the successful model calls of a run.
type GenerationStats struct {
	Calls    int
	Attempts int
	Usage    unifiedllm.Usage
	Latency  time.Duration
}

// ClientGenerator is a Generator backed by a unifiedllm.Client.
type ClientGenerator struct {
	client *unifiedllm.Client
	cfg    GeneratorConfig

	mu    sync.Mutex
	stats GenerationStats
}

// NewClientGenerator wraps client.
func NewClientGenerator(client *unifiedllm.Client, cfg GeneratorConfig) *ClientGenerator {
	return &ClientGenerator{client: client, cfg: cfg}
}

// Generate sends one prompt and returns the response text.
func (g *ClientGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	result, err := unifiedllm.Generate(ctx, unifiedllm.GenerateOptions{
		Model:       g.cfg.Model,
		Prompt:      prompt,
		System:      system,
		Provider:    g.cfg.Provider,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		Retry:       g.cfg.Retry,
		Client:      g.client,
	})
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	g.stats.Calls++
	g.stats.Attempts += result.Attempts
	g.stats.Usage = g.stats.Usage.Add(result.Response.Usage)
	// Latency is only measured when the client carries LoggingMiddleware.
	g.stats.Latency += result.Response.Latency
	g.mu.Unlock()
	return result.Text, nil
}

// Stats returns the totals so far.
func (g *ClientGenerator) Stats() GenerationStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}
