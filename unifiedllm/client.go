package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CompleteFunc performs one model call.
type CompleteFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a model call. It must call next to reach the backend.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes requests to a registered backend adapter through a chain
// of middleware. It is safe for concurrent use.
type Client struct {
	mu         sync.RWMutex
	adapters   map[string]ProviderAdapter
	fallback   string
	middleware []Middleware
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.adapters[name] = adapter }
}

// WithDefaultProvider names the adapter used when a request names none.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.fallback = name }
}

// WithMiddleware appends middleware. The first one added is outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// NewClient creates a Client. With exactly one adapter and no explicit
// default, that adapter becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: map[string]ProviderAdapter{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.fallback = name
		}
	}
	return c
}

// Providers returns the registered adapter names, sorted.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.adapters)
}

func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.fallback
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}
	adapter, ok := c.adapters[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered (have: %s)", name, strings.Join(sortedKeys(c.adapters), ", ")),
		}}
	}
	return adapter, nil
}

// Complete sends req to its adapter through the middleware chain. The
// request's Provider is filled in before the middleware sees it.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	c.mu.RLock()
	chain := chainMiddleware(c.middleware, adapter.Complete)
	c.mu.RUnlock()
	return chain(ctx, req)
}

// chainMiddleware folds mws around final so that mws[0] runs first.
func chainMiddleware(mws []Middleware, final CompleteFunc) CompleteFunc {
	call := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], call
		call = func(ctx context.Context, r Request) (*Response, error) {
			return mw(ctx, r, next)
		}
	}
	return call
}

// Close closes every adapter that holds resources and joins their errors.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var errs []error
	for _, name := range sortedKeys(c.adapters) {
		if closer, ok := c.adapters[name].(Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]ProviderAdapter) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
