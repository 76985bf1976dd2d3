package unifiedllm

import (
	"context"
	"strings"
)

// GenerateOptions configures a high-level Generate call.
type GenerateOptions struct {
	Model       string
	Prompt      string    // simple text prompt (mutually exclusive with Messages)
	Messages    []Message // full conversation (mutually exclusive with Prompt)
	System      string
	Provider    string
	Temperature *float64
	MaxTokens   *int
	Retry       *RetryPolicy // nil uses DefaultRetryPolicy
	Client      *Client
}

// Generate is the high-level blocking generation function. It builds the
// request and retries retryable failures. Per-request timeouts are the
// client's job (TimeoutMiddleware).
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if opts.Prompt != "" && len(opts.Messages) > 0 {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "cannot specify both prompt and messages",
		}}
	}
	if opts.Client == nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "no client configured"}}
	}

	policy := DefaultRetryPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}

	messages := opts.Messages
	if opts.Prompt != "" {
		messages = []Message{UserMessage(opts.Prompt)}
	}
	if opts.System != "" {
		messages = append([]Message{SystemMessage(opts.System)}, messages...)
	}
	if len(messages) == 0 {
		return nil, &InvalidRequestError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "empty prompt"},
			Provider: opts.Provider,
		}}
	}

	req := Request{
		Model:       opts.Model,
		Messages:    messages,
		Provider:    opts.Provider,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	resp, attempts, err := Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
		return opts.Client.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		Text:     resp.Text(),
		Response: *resp,
		Attempts: attempts,
	}, nil
}

// finishFromRaw normalizes a backend stop reason.
func finishFromRaw(raw string) FinishReason {
	switch strings.ToLower(raw) {
	case "", "stop", "end_turn", "eos":
		return FinishReason{Reason: "stop", Raw: raw}
	case "length", "max_tokens":
		return FinishReason{Reason: "length", Raw: raw}
	default:
		return FinishReason{Reason: "other", Raw: raw}
	}
}
