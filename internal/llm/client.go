// Package llm provides clients for the hosted LLM providers used by
// voicefit. Kimi (Moonshot) and Grok (xAI) both expose the OpenAI
// chat-completions wire format, so a single HTTP client serves both; the
// Router layers provider fallback on top.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Message is one turn of a chat-completions conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a provider-agnostic completion request.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSONOnly    bool // ask the provider to return a JSON object
}

// Client is the completion interface the domain services depend on.
type Client interface {
	// Complete runs one chat completion and returns the assistant text.
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs and responses.
	Name() string
}

// ErrNoContent is returned when the provider responds without any choices.
var ErrNoContent = errors.New("provider returned no content")

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Provider, e.Status, e.Body)
}

// Retryable reports whether the failure is transient: rate limiting or
// server-side errors. 4xx validation failures are permanent.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ProviderConfig configures one OpenAI-compatible provider.
type ProviderConfig struct {
	Name    string // "kimi" or "grok"
	BaseURL string // e.g. https://api.moonshot.ai/v1
	APIKey  string
	Model   string

	// RequestsPerSecond limits outbound calls (0 = default 1/s).
	RequestsPerSecond float64
	// Timeout is the per-request HTTP timeout (0 = default 60s).
	Timeout time.Duration

	Retry RetryConfig

	// Circuit breaker tuning (0 = defaults: 5 failures to open, 2
	// successes to close, 30s cooldown).
	BreakerFailures   int
	BreakerRecoveries int
	BreakerCooldown   time.Duration
}

// Provider is an OpenAI-compatible chat-completions client with retry,
// per-provider rate limiting and a circuit breaker.
//
// Provider is safe for concurrent use by multiple goroutines.
type Provider struct {
	name    string
	baseURL string
	apiKey  string
	model   string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	retry      RetryConfig
	logger     *slog.Logger
}

// NewProvider creates a Provider. logger may be nil.
func NewProvider(cfg ProviderConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	return &Provider{
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    newCircuitBreaker(cfg.BreakerFailures, cfg.BreakerRecoveries, cfg.BreakerCooldown),
		retry:      retry,
		logger:     logger.With("provider", cfg.Name),
	}
}

// Name implements Client.
func (p *Provider) Name() string { return p.name }

// Breaker exposes the circuit breaker state for readiness reporting.
func (p *Provider) Breaker() *CircuitBreaker { return p.breaker }

// chat-completions wire types (the subset both providers share).
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Client. The circuit breaker is consulted before any
// attempt; retries happen inside a single Complete call via
// executeWithRetry, and the breaker records the aggregate outcome.
func (p *Provider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.breaker.Allow(); err != nil {
		return "", fmt.Errorf("%s: %w", p.name, err)
	}

	text, err := p.executeWithRetry(ctx, req)
	if err != nil {
		p.breaker.Failure()
		return "", err
	}

	p.breaker.Success()
	return text, nil
}

// doRequest performs one HTTP round-trip.
func (p *Provider) doRequest(ctx context.Context, req Request) (string, error) {
	body := chatCompletionRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOnly {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request: %w", p.name, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	// Error bodies are truncated so provider messages cannot flood logs.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			Provider: p.name,
			Status:   resp.StatusCode,
			Body:     truncate(string(respBody), 512),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrNoContent)
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
