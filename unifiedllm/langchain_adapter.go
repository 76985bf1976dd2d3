package unifiedllm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainAdapter implements ProviderAdapter on top of a langchaingo
// llms.Model, by default the Ollama client.
type LangchainAdapter struct {
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

// NewLangchainAdapter creates a LangchainAdapter for the Ollama server at
// serverURL.
func NewLangchainAdapter(serverURL, model string, temperature float64, maxTokens int) (*LangchainAdapter, error) {
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "langchain: model is required"}}
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchaingo ollama client for %s: %w", serverURL, err)
	}
	return NewLangchainAdapterFromModel(llm, model, temperature, maxTokens), nil
}

// NewLangchainAdapterFromModel wraps an existing llms.Model.
func NewLangchainAdapterFromModel(model llms.Model, modelName string, temperature float64, maxTokens int) *LangchainAdapter {
	return &LangchainAdapter{
		model:       model,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Name returns the provider identifier.
func (a *LangchainAdapter) Name() string {
	return BackendLangchain
}

// Complete sends a blocking request and returns the full response.
func (a *LangchainAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content = append(content, llms.TextParts(chatType(msg.Role), msg.Content))
	}

	temperature := a.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	callOpts := []llms.CallOption{llms.WithTemperature(temperature)}
	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(maxTokens))
	}
	if req.Model != "" && req.Model != a.modelName {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}

	resp, err := a.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, classifyError(BackendLangchain, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &ServerError{ProviderError: ProviderError{
			SDKError:   SDKError{Message: "langchain: response has no choices"},
			Provider:   BackendLangchain,
			StatusCode: 500,
			Retryable:  true,
		}}
	}

	choice := resp.Choices[0]
	model := req.Model
	if model == "" {
		model = a.modelName
	}
	in := estimateTokens(req.PromptChars())
	out := estimateTokens(len(choice.Content))
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     BackendLangchain,
		Message:      AssistantMessage(choice.Content),
		FinishReason: finishFromRaw(choice.StopReason),
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}, nil
}

func chatType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
