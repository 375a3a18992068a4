// Package search provides exercise matching and knowledge retrieval over
// Upstash Search, with a PostgreSQL fallback when the hosted index is
// unavailable.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Doc is one document in a search namespace.
type Doc struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score,omitempty"`
}

// UpstashClient talks to the Upstash Search REST API. Upstash embeds
// documents server-side, so queries and upserts are plain text in/out.
//
// UpstashClient is safe for concurrent use by multiple goroutines.
type UpstashClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewUpstashClient creates a client for the given endpoint. logger may be nil.
func NewUpstashClient(baseURL, token string, logger *slog.Logger) *UpstashClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpstashClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.With("component", "upstash"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type queryResponse struct {
	Result []Doc `json:"result"`
}

type upsertRequest struct {
	Documents []Doc `json:"documents"`
}

// Query runs a semantic query against one namespace.
func (c *UpstashClient) Query(ctx context.Context, namespace, query string, topK int) ([]Doc, error) {
	if topK <= 0 {
		topK = 5
	}

	var resp queryResponse
	err := c.do(ctx, "search/"+url.PathEscape(namespace)+"/query",
		queryRequest{Query: query, TopK: topK}, &resp)
	if err != nil {
		return nil, fmt.Errorf("query namespace %q: %w", namespace, err)
	}
	return resp.Result, nil
}

// Upsert writes documents into one namespace.
func (c *UpstashClient) Upsert(ctx context.Context, namespace string, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}

	if err := c.do(ctx, "search/"+url.PathEscape(namespace)+"/upsert",
		upsertRequest{Documents: docs}, nil); err != nil {
		return fmt.Errorf("upsert %d docs into %q: %w", len(docs), namespace, err)
	}

	c.logger.Debug("upserted documents", "namespace", namespace, "count", len(docs))
	return nil
}

// do performs one authenticated POST round-trip.
func (c *UpstashClient) do(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstash status %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
