package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SDKError is the base error type for all unifiedllm errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by a model backend.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ SDKError }
type AbortError struct{ SDKError }
type NetworkError struct{ SDKError }
type ConfigurationError struct{ SDKError }

// retryClassifier is implemented by every classified error type.
type retryClassifier interface {
	isRetryable() bool
}

func (e *ProviderError) isRetryable() bool       { return e.Retryable }
func (e *AuthenticationError) isRetryable() bool { return false }
func (e *NotFoundError) isRetryable() bool       { return false }
func (e *InvalidRequestError) isRetryable() bool { return false }
func (e *ContextLengthError) isRetryable() bool  { return false }
func (e *RateLimitError) isRetryable() bool      { return true }
func (e *ServerError) isRetryable() bool         { return true }
func (e *RequestTimeoutError) isRetryable() bool { return true }
func (e *NetworkError) isRetryable() bool        { return true }
func (e *AbortError) isRetryable() bool          { return false }
func (e *ConfigurationError) isRetryable() bool  { return false }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, provider string, cause error) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: statusCode,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401, 403:
		return &AuthenticationError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{SDKError: SDKError{Message: message, Cause: cause}}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		// Unknown errors default to retryable.
		pe.Retryable = true
		return &pe
	}
}

// IsRetryable returns true if the error is safe to retry. Cancellation
// is never retried; unclassified errors are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var rc retryClassifier
	if errors.As(err, &rc) {
		return rc.isRetryable()
	}
	return true
}

// classifyError converts a backend error whose only structure is its
// message into the unified error hierarchy. Local servers mostly fail
// with transport errors, so those are checked first.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var rc retryClassifier
	if errors.As(err, &rc) {
		return err
	}
	msg := err.Error()

	if errors.Is(err, context.Canceled) {
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
		}
		return &NetworkError{SDKError: SDKError{Message: msg, Cause: err}}
	}

	msgLower := strings.ToLower(msg)
	pe := func(status int, retryable bool) ProviderError {
		return ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: provider, StatusCode: status, Retryable: retryable}
	}
	switch {
	case strings.Contains(msgLower, "connection refused") || strings.Contains(msgLower, "no such host") ||
		strings.Contains(msgLower, "connection reset") || strings.Contains(msgLower, "eof"):
		return &NetworkError{SDKError: SDKError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: pe(401, false)}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		// Ollama answers 404 for a model that has not been pulled.
		return &NotFoundError{ProviderError: pe(404, false)}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: pe(429, true)}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: pe(413, false)}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server") ||
		strings.Contains(msgLower, "502") || strings.Contains(msgLower, "503"):
		return &ServerError{ProviderError: pe(500, true)}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	default:
		p := pe(0, true)
		return &p
	}
}
