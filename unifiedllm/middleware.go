package unifiedllm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OmBiradar/deepruster/logging"
)

// LoggingMiddleware records every model call at DEBUG, and failures at
// WARNING.
func LoggingMiddleware(log *logging.Logger) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		start := time.Now()
		log.Debug("model request",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Int("prompt_chars", req.PromptChars()))

		resp, err := next(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			log.Warn("model request failed",
				zap.String("provider", req.Provider),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			return nil, err
		}
		resp.Latency = elapsed
		log.Debug("model response",
			zap.String("provider", resp.Provider),
			zap.String("finish", resp.FinishReason.Reason),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
			zap.Duration("elapsed", elapsed))
		return resp, nil
	}
}

// TimeoutMiddleware bounds each call with d. A zero d disables it.
// Deadline errors are surfaced as RequestTimeoutError.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		if d <= 0 {
			return next(ctx, req)
		}
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		resp, err := next(callCtx, req)
		if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &RequestTimeoutError{SDKError: SDKError{
				Message: "model request exceeded " + d.String(),
				Cause:   err,
			}}
		}
		return resp, err
	}
}
