// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./voicefit.yaml or /etc/voicefit/voicefit.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Server: listen address, CORS, proxy trust, rate limiting
//   - Storage: PostgreSQL connection (see storage.go)
//   - Auth: JWT signing secret for bearer tokens
//   - LLM: Kimi and Grok provider credentials and model selection
//   - Search: Upstash Search endpoint for exercise/knowledge matching
//   - Weather: OpenWeather API for run conditions
//
// Secrets are never logged: MarshalJSON masks sensitive fields, and range
// checks live in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingJWTSecret indicates the JWT signing secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT signing secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrMissingLLMKey indicates no LLM provider API key is configured.
	ErrMissingLLMKey = errors.New("missing LLM API key")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidSearchConfig indicates the Upstash Search configuration is incomplete.
	ErrInvalidSearchConfig = errors.New("invalid search configuration")

	// ErrInvalidProviderURL indicates a provider base URL is malformed.
	ErrInvalidProviderURL = errors.New("invalid provider base URL")
)

// LLMProvider holds credentials and model selection for one hosted LLM API.
// Both Kimi and Grok expose the OpenAI chat-completions wire format.
type LLMProvider struct {
	APIKey  string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	Model   string `mapstructure:"model" json:"model"`
}

// SearchConfig holds the Upstash Search connection settings.
type SearchConfig struct {
	URL       string `mapstructure:"url" json:"url"`
	Token     string `mapstructure:"token" json:"token"` // SENSITIVE: masked in MarshalJSON
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// WeatherConfig holds the OpenWeather API settings.
type WeatherConfig struct {
	APIKey  string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Server configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Auth configuration
	JWTSecret string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE: masked in MarshalJSON

	// LLM configuration: Kimi is the parse/chat primary, Grok the fallback.
	Kimi        LLMProvider `mapstructure:"kimi" json:"kimi"`
	Grok        LLMProvider `mapstructure:"grok" json:"grok"`
	Temperature float32     `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int         `mapstructure:"max_tokens" json:"max_tokens"`

	// Search configuration
	Search SearchConfig `mapstructure:"search" json:"search"`

	// Weather configuration
	Weather WeatherConfig `mapstructure:"weather" json:"weather"`

	// Storage configuration (see storage.go for DSN handling)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("voicefit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/voicefit")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults plus env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"config_name", "voicefit.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides discrete postgres_* settings when present.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cors_origins", []string{"http://localhost:8081"}) // Expo dev server
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)

	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 2048)

	v.SetDefault("kimi.base_url", "https://api.moonshot.ai/v1")
	v.SetDefault("kimi.model", "kimi-k2-0711-preview")
	v.SetDefault("grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("grok.model", "grok-3-mini")

	v.SetDefault("search.namespace", "exercises")

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "voicefit")
	v.SetDefault("postgres_password", "voicefit_dev_password")
	v.SetDefault("postgres_db_name", "voicefit")
	v.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variables for secrets and overrides.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("jwt_secret", "VOICEFIT_JWT_SECRET")
	mustBind("kimi.api_key", "KIMI_API_KEY")
	mustBind("grok.api_key", "GROK_API_KEY")
	mustBind("search.url", "UPSTASH_SEARCH_URL")
	mustBind("search.token", "UPSTASH_SEARCH_TOKEN")
	mustBind("weather.api_key", "OPENWEATHER_API_KEY")
	mustBind("cors_origins", "VOICEFIT_CORS_ORIGINS")
	mustBind("trust_proxy", "VOICEFIT_TRUST_PROXY")
	mustBind("listen_addr", "VOICEFIT_LISTEN_ADDR")
	mustBind("rate_burst", "VOICEFIT_RATE_BURST")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring collisions with real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer secrets keep the
// first and last two characters for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real secrets,
// nothing more. If logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked: PostgresPassword, JWTSecret, Kimi.APIKey,
// Grok.APIKey, Search.Token, Weather.APIKey.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.JWTSecret = maskSecret(a.JWTSecret)
	a.Kimi.APIKey = maskSecret(a.Kimi.APIKey)
	a.Grok.APIKey = maskSecret(a.Grok.APIKey)
	a.Search.Token = maskSecret(a.Search.Token)
	a.Weather.APIKey = maskSecret(a.Weather.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
