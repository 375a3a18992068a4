// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the database
// pool, the domain stores, the LLM provider router, the search matcher and
// the domain services built on top of them. Setup constructs it in
// dependency order; Close releases resources in reverse.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

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

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool *pgxpool.Pool

	// Stores
	Exercises *store.ExerciseStore
	Workouts  *store.WorkoutStore
	Injuries  *store.InjuryStore
	Programs  *store.ProgramStore
	Messages  *store.ChatStore
	Sessions  *voice.SessionStore

	// External clients
	LLM     llm.Client
	Upstash *search.UpstashClient
	Matcher *search.Matcher
	Weather *weather.Client

	// Domain services
	Parser     *voice.Parser
	Classifier *chat.Classifier
	Coach      *chat.Coach
	Analyzer   *injury.Analyzer
	Generator  *program.Generator
	Sweeper    *voice.Sweeper

	dbCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Info("database pool closed")
	}
	return nil
}
