package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// LLM configuration: at least one provider key must be present, since
	// voice parse, chat, injury analysis and program generation all need one.
	if c.Kimi.APIKey == "" && c.Grok.APIKey == "" {
		return fmt.Errorf("%w: set KIMI_API_KEY or GROK_API_KEY", ErrMissingLLMKey)
	}

	if err := validateBaseURL(c.Kimi.BaseURL); err != nil {
		return fmt.Errorf("%w: kimi: %v", ErrInvalidProviderURL, err)
	}
	if err := validateBaseURL(c.Grok.BaseURL); err != nil {
		return fmt.Errorf("%w: grok: %v", ErrInvalidProviderURL, err)
	}

	// Temperature range follows the OpenAI-compatible API contract.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 131072 {
		return fmt.Errorf("%w: must be between 1 and 131,072, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Search: URL and token come as a pair. Both empty is allowed (the
	// exercise matcher then runs on Postgres only).
	if (c.Search.URL == "") != (c.Search.Token == "") {
		return fmt.Errorf("%w: search.url and search.token must be set together", ErrInvalidSearchConfig)
	}
	if c.Search.URL != "" {
		if err := validateBaseURL(c.Search.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSearchConfig, err)
		}
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not a valid sslmode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.PostgresPassword == "voicefit_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}

	return nil
}

// ValidateServe performs the additional checks required to run the HTTP
// server: serving without a JWT secret would leave every owner-scoped
// endpoint unauthenticated.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set VOICEFIT_JWT_SECRET", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%w: must be at least 32 bytes, got %d", ErrInvalidJWTSecret, len(c.JWTSecret))
	}
	return nil
}

// validateBaseURL checks that a provider base URL is absolute http(s).
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
