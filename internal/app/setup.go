package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Zchasse63/voice-fit-sub003/db"
	"github.com/Zchasse63/voice-fit-sub003/internal/chat"
	"github.com/Zchasse63/voice-fit-sub003/internal/config"
	"github.com/Zchasse63/voice-fit-sub003/internal/injury"
	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/program"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
	"github.com/Zchasse63/voice-fit-sub003/internal/voice"
	"github.com/Zchasse63/voice-fit-sub003/internal/weather"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup: call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	a.Exercises = store.NewExerciseStore(pool, logger)
	a.Workouts = store.NewWorkoutStore(pool, logger)
	a.Injuries = store.NewInjuryStore(pool, logger)
	a.Programs = store.NewProgramStore(pool, logger)
	a.Messages = store.NewChatStore(pool, logger)
	a.Sessions = voice.NewSessionStore(pool, logger)

	a.LLM = provideLLMRouter(cfg, logger)

	if cfg.Search.URL != "" {
		a.Upstash = search.NewUpstashClient(cfg.Search.URL, cfg.Search.Token, logger)
	}
	a.Matcher = search.NewMatcher(a.Upstash, a.Exercises, logger)

	if cfg.Weather.APIKey != "" {
		a.Weather = weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, logger)
	}

	a.Parser = voice.NewParser(a.LLM, a.Matcher, a.Sessions, a.Workouts,
		cfg.Temperature, cfg.MaxTokens, logger)
	a.Classifier = chat.NewClassifier(a.LLM, logger)
	a.Coach = chat.NewCoach(a.LLM, a.Matcher, a.Messages, a.Classifier,
		cfg.Temperature, cfg.MaxTokens, logger)
	a.Analyzer = injury.NewAnalyzer(a.LLM, a.Matcher, a.Injuries, a.Workouts,
		cfg.MaxTokens, logger)
	a.Generator = program.NewGenerator(a.LLM, a.Programs, a.Workouts,
		cfg.MaxTokens, logger)
	a.Sweeper = voice.NewSweeper(a.Sessions, voice.DefaultSweepInterval, logger)

	return a, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideLLMRouter builds the Kimi-then-Grok fallback chain from whatever
// providers have credentials. Config validation guarantees at least one.
func provideLLMRouter(cfg *config.Config, logger *slog.Logger) llm.Client {
	var providers []llm.Client
	if cfg.Kimi.APIKey != "" {
		providers = append(providers, llm.NewProvider(llm.ProviderConfig{
			Name:    "kimi",
			BaseURL: cfg.Kimi.BaseURL,
			APIKey:  cfg.Kimi.APIKey,
			Model:   cfg.Kimi.Model,
		}, logger))
	}
	if cfg.Grok.APIKey != "" {
		providers = append(providers, llm.NewProvider(llm.ProviderConfig{
			Name:    "grok",
			BaseURL: cfg.Grok.BaseURL,
			APIKey:  cfg.Grok.APIKey,
			Model:   cfg.Grok.Model,
		}, logger))
	}
	return llm.NewRouter(logger, providers...)
}
