package unifiedllm

import "context"

// ProviderAdapter is the interface every model backend implements.
type ProviderAdapter interface {
	// Name returns the backend identifier (e.g. "gollm", "langchain", "openai").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Optional adapter methods.

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
