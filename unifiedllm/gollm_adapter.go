package unifiedllm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// Defaults applied when a BackendConfig leaves them at zero.
const (
	gollmDefaultMaxTokens = 4096
	ollamaDefaultURL      = "http://localhost:11434"
)

// GollmAdapter talks to an Ollama server through gollm's "ollama"
// provider. gollm keeps per-request settings on the LLM itself, so calls
// are serialized.
type GollmAdapter struct {
	mu    sync.Mutex
	llm   gollm.LLM
	model string
}

// NewGollmAdapter builds a gollm LLM from cfg. extra options are applied
// last and can override anything derived from cfg.
func NewGollmAdapter(cfg BackendConfig, extra ...gollm.ConfigOption) (*GollmAdapter, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "gollm: model is required"}}
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = ollamaDefaultURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = gollmDefaultMaxTokens
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider("ollama"),
		gollm.SetOllamaEndpoint(endpoint),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(cfg.Temperature),
		// Retries belong to RetryPolicy; gollm's own would multiply them.
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "gollm: cannot create client for " + endpoint,
			Cause:   err,
		}}
	}
	return &GollmAdapter{llm: llm, model: cfg.Model}, nil
}

func (a *GollmAdapter) Name() string { return BackendGollm }

func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)

	a.mu.Lock()
	a.applyRequestOptions(req)
	text, err := a.llm.Generate(ctx, prompt)
	a.mu.Unlock()
	if err != nil {
		return nil, classifyError(BackendGollm, err)
	}
	return a.buildResponse(req, text), nil
}

// translateRequest flattens the conversation into one gollm prompt. The
// system text (environment block) travels as gollm's system prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	system, text := req.SplitPrompt()

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	return gollm.NewPrompt(text, opts...)
}

// applyRequestOptions pushes per-request overrides into the LLM. The
// model is always set so that a request without one falls back to the
// adapter default instead of whatever the previous request used.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	a.llm.SetOption("model", model)
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse wraps the generated text. gollm reports no usage for
// ollama, so token counts are estimated from character counts.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}
	in, out := estimateTokens(req.PromptChars()), estimateTokens(len(text))
	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     BackendGollm,
		Message:      AssistantMessage(text),
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}
