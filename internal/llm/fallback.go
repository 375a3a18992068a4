package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllProvidersFailed is returned when every configured provider failed
// or was rejected by its circuit breaker.
var ErrAllProvidersFailed = errors.New("all LLM providers failed")

// Router fans a completion over an ordered provider list: the primary is
// tried first, the next provider only when the previous one fails with a
// transient error or an open circuit. Permanent errors (request
// validation) are returned immediately since every provider would reject
// the same payload.
//
// Router is safe for concurrent use by multiple goroutines.
type Router struct {
	providers []Client
	logger    *slog.Logger
}

// NewRouter creates a Router over providers in priority order.
func NewRouter(logger *slog.Logger, providers ...Client) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{providers: providers, logger: logger}
}

// Name implements Client.
func (r *Router) Name() string { return "router" }

// Providers returns the configured provider names in priority order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete implements Client with provider fallback.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	if len(r.providers) == 0 {
		return "", fmt.Errorf("%w: none configured", ErrAllProvidersFailed)
	}

	var lastErr error
	for i, p := range r.providers {
		text, err := p.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				r.logger.Info("completion served by fallback provider",
					"provider", p.Name(), "attempted", i+1)
			}
			return text, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("complete: %w", ctx.Err())
		}

		// A permanent provider rejection means the request itself is bad;
		// trying the next provider would waste a call.
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", err
		}

		r.logger.Warn("provider failed, trying next",
			"provider", p.Name(),
			"remaining", len(r.providers)-i-1,
			"error", err,
		)
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}
