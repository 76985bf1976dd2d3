package unifiedllm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements ProviderAdapter against an OpenAI-compatible
// chat completions endpoint. Ollama serves one under /v1.
type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIAdapter creates an OpenAIAdapter. baseURL is the server root;
// "/v1" is appended when missing.
func NewOpenAIAdapter(baseURL, apiKey, model string, temperature float64, maxTokens int) (*OpenAIAdapter, error) {
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "openai: model is required"}}
	}
	if apiKey == "" {
		// Ollama accepts any bearer token.
		apiKey = "ollama"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = openAIBaseURL(baseURL)
	}
	return &OpenAIAdapter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func openAIBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return BackendOpenAI
}

// Complete sends a blocking request and returns the full response.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	temperature := a.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ServerError{ProviderError: ProviderError{
			SDKError:   SDKError{Message: "openai: response has no choices"},
			Provider:   BackendOpenAI,
			StatusCode: 500,
			Retryable:  true,
		}}
	}

	choice := resp.Choices[0]
	if resp.Model != "" {
		model = resp.Model
	}
	return &Response{
		ID:           resp.ID,
		Model:        model,
		Provider:     BackendOpenAI,
		Message:      AssistantMessage(choice.Message.Content),
		FinishReason: finishFromRaw(string(choice.FinishReason)),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// translateError maps go-openai errors onto the unified hierarchy using
// the HTTP status when one is available.
func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(apiErr.HTTPStatusCode, apiErr.Message, BackendOpenAI, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ErrorFromStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), BackendOpenAI, err)
	}
	return classifyError(BackendOpenAI, err)
}

func openAIRole(role Role) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
