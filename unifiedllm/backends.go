package unifiedllm

import (
	"fmt"
	"strings"
)

// Backend identifiers accepted by NewAdapter.
const (
	BackendGollm     = "gollm"
	BackendLangchain = "langchain"
	BackendOpenAI    = "openai"
)

// Backends lists the supported backend identifiers.
func Backends() []string {
	return []string{BackendGollm, BackendLangchain, BackendOpenAI}
}

// BackendConfig selects and configures one model backend.
type BackendConfig struct {
	Backend     string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// NewAdapter builds the ProviderAdapter named by cfg.Backend. An empty
// backend selects gollm.
func NewAdapter(cfg BackendConfig) (ProviderAdapter, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendGollm:
		a, err := NewGollmAdapter(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case BackendLangchain:
		a, err := NewLangchainAdapter(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return a, nil
	case BackendOpenAI:
		a, err := NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("unknown model backend %q (want one of %s)", cfg.Backend, strings.Join(Backends(), ", ")),
		}}
	}
}
