// Package unifiedllm provides a backend-agnostic text generation client
// for locally hosted models.
//
// # Architecture
//
// The package follows a layered layout:
//
//   - Layer 1 (Backend Contract): ProviderAdapter interface and shared types
//   - Layer 2 (Backend Utilities): retry policy, error classification helpers
//   - Layer 3 (Core Client): Client with backend routing and middleware
//   - Layer 4 (High-Level API): Generate
//
// # Backends
//
// Three adapters talk to an Ollama server (or anything speaking the same
// protocols):
//
//   - GollmAdapter wraps github.com/teilomillet/gollm with the "ollama" provider.
//   - LangchainAdapter wraps github.com/tmc/langchaingo/llms/ollama.
//   - OpenAIAdapter wraps github.com/sashabaranov/go-openai against an
//     OpenAI-compatible /v1 endpoint.
//
// NewAdapter builds one of them from a BackendConfig.
//
// # Quick Start
//
//	adapter, _ := unifiedllm.NewAdapter(unifiedllm.BackendConfig{
//	    Backend: "gollm",
//	    BaseURL: "http://localhost:11434",
//	    Model:   "codellama",
//	})
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("gollm", adapter))
//
//	result, _ := unifiedllm.Generate(ctx, unifiedllm.GenerateOptions{
//	    Prompt: "Write hello world in Rust",
//	    Client: client,
//	})
//	fmt.Println(result.Text)
package unifiedllm
