package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RetryConfig configures the retry behavior for provider calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for hosted LLM APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transport-level error substrings by category.
// Matched case-insensitively against err.Error(). HTTP-level failures are
// classified by APIError.Retryable instead; this list only covers errors
// that never reach a status code.
var retryablePatterns = [][]string{
	{"connection reset", "connection refused", "broken pipe"}, // network errors
	{"timeout", "deadline exceeded", "temporary"},             // slow provider
	{"eof", "unexpected eof"},                                 // truncated response
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false // caller gave up, do not burn more attempts
	}

	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(errStr, pattern) {
				return true
			}
		}
	}
	return false
}

// executeWithRetry executes one completion with exponential backoff retry.
// Each attempt is rate limited so retries cannot amplify provider load.
func (p *Provider) executeWithRetry(ctx context.Context, req Request) (string, error) {
	var lastErr error
	delay := p.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		text, err := p.doRequest(ctx, req)
		if err == nil {
			p.logger.Debug("completion succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return text, nil
		}

		lastErr = err

		if !retryableError(err) {
			return "", fmt.Errorf("complete: %w", err)
		}

		if attempt == p.retry.MaxRetries {
			break
		}

		p.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, p.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("complete after %d retries (elapsed: %v): %w",
		p.retry.MaxRetries, time.Since(start), lastErr)
}
