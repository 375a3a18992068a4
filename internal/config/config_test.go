package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		JWTSecret:  "0123456789abcdef0123456789abcdef",
		Kimi: LLMProvider{
			APIKey:  "sk-kimi-test",
			BaseURL: "https://api.moonshot.ai/v1",
			Model:   "kimi-k2-0711-preview",
		},
		Grok: LLMProvider{
			BaseURL: "https://api.x.ai/v1",
			Model:   "grok-3-mini",
		},
		Temperature:      0.3,
		MaxTokens:        2048,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "voicefit",
		PostgresPassword: "secret",
		PostgresDBName:   "voicefit",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no llm key", func(c *Config) { c.Kimi.APIKey, c.Grok.APIKey = "", "" }, ErrMissingLLMKey},
		{"grok key alone suffices", func(c *Config) { c.Kimi.APIKey, c.Grok.APIKey = "", "xai-test" }, nil},
		{"bad provider url", func(c *Config) { c.Kimi.BaseURL = "moonshot.ai/v1" }, ErrInvalidProviderURL},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"max tokens zero", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"search url without token", func(c *Config) { c.Search.URL = "https://x.upstash.io" }, ErrInvalidSearchConfig},
		{"search token without url", func(c *Config) { c.Search.Token = "tok" }, ErrInvalidSearchConfig},
		{"search pair valid", func(c *Config) {
			c.Search.URL, c.Search.Token = "https://x.upstash.io", "tok"
		}, nil},
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad sslmode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidateServe(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateServe())

	cfg.JWTSecret = ""
	assert.ErrorIs(t, cfg.ValidateServe(), ErrMissingJWTSecret)

	cfg.JWTSecret = "too-short"
	assert.ErrorIs(t, cfg.ValidateServe(), ErrInvalidJWTSecret)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, maskedValue, maskSecret("short"))
	assert.Equal(t, maskedValue, maskSecret("12345678"))

	masked := maskSecret("sk-kimi-live-abcdef123456")
	assert.True(t, strings.HasPrefix(masked, "sk"))
	assert.True(t, strings.HasSuffix(masked, "56"))
	assert.NotContains(t, masked, "live")
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "super-secret-jwt-signing-key-value"
	cfg.Kimi.APIKey = "sk-kimi-live-key"
	cfg.Search.Token = "upstash-live-token"
	cfg.Weather.APIKey = "ow-live-key"
	cfg.PostgresPassword = "db-live-password"

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	out := string(data)
	for _, secret := range []string{
		"super-secret-jwt-signing-key-value",
		"sk-kimi-live-key",
		"upstash-live-token",
		"ow-live-key",
		"db-live-password",
	} {
		assert.NotContains(t, out, secret, "secret leaked into JSON output")
	}
	assert.Contains(t, out, maskedValue)
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "has space's"

	dsn := cfg.PostgresConnectionString()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, `password='has space\'s'`)
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestPostgresURL(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "p@ss/word"

	u := cfg.PostgresURL()
	assert.True(t, strings.HasPrefix(u, "postgres://"))
	assert.Contains(t, u, "sslmode=disable")
	assert.NotContains(t, u, "p@ss/word", "password must be URL-encoded")
}

func TestParseDatabaseURL(t *testing.T) {
	cfg := validConfig()
	t.Setenv("DATABASE_URL", "postgres://app:pw@db.example.com:6543/prod?sslmode=require")

	require.NoError(t, cfg.parseDatabaseURL())
	assert.Equal(t, "db.example.com", cfg.PostgresHost)
	assert.Equal(t, 6543, cfg.PostgresPort)
	assert.Equal(t, "app", cfg.PostgresUser)
	assert.Equal(t, "pw", cfg.PostgresPassword)
	assert.Equal(t, "prod", cfg.PostgresDBName)
	assert.Equal(t, "require", cfg.PostgresSSLMode)
}

func TestParseDatabaseURL_BadScheme(t *testing.T) {
	cfg := validConfig()
	t.Setenv("DATABASE_URL", "mysql://app:pw@db/prod")
	assert.Error(t, cfg.parseDatabaseURL())
}

func TestParseDatabaseURL_Unset(t *testing.T) {
	cfg := validConfig()
	t.Setenv("DATABASE_URL", "")

	require.NoError(t, cfg.parseDatabaseURL())
	assert.Equal(t, "localhost", cfg.PostgresHost)
}
