package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Zchasse63/voice-fit-sub003/internal/chat"
	"github.com/Zchasse63/voice-fit-sub003/internal/injury"
	"github.com/Zchasse63/voice-fit-sub003/internal/program"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
	"github.com/Zchasse63/voice-fit-sub003/internal/voice"
	"github.com/Zchasse63/voice-fit-sub003/internal/weather"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger *slog.Logger

	Sessions  *voice.SessionStore // Required
	Parser    *voice.Parser       // Required
	Coach     *chat.Coach         // Required
	Classify  *chat.Classifier    // Required
	Messages  *store.ChatStore    // Required
	Analyzer  *injury.Analyzer    // Required
	Injuries  *store.InjuryStore  // Required
	Workouts  *store.WorkoutStore // Required
	Generator *program.Generator  // Required
	Programs  *store.ProgramStore // Required
	Matcher   *search.Matcher     // Required
	Weather   *weather.Client     // Optional: nil disables the weather endpoint
	Pool      *pgxpool.Pool       // Optional: nil disables pool stats in /ready

	JWTSecret   []byte   // Required: 32+ bytes, HS256 verification key
	CORSOrigins []string // Allowed origins for CORS
	IsDev       bool     // Disables HSTS
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int      // Rate limiter burst size per caller (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Sessions == nil || cfg.Parser == nil || cfg.Coach == nil || cfg.Classify == nil ||
		cfg.Messages == nil || cfg.Analyzer == nil || cfg.Injuries == nil || cfg.Workouts == nil ||
		cfg.Generator == nil || cfg.Programs == nil || cfg.Matcher == nil {
		return nil, errors.New("all domain dependencies are required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vh := &voiceHandler{sessions: cfg.Sessions, parser: cfg.Parser, logger: logger}
	ch := &chatHandler{classifier: cfg.Classify, coach: cfg.Coach, messages: cfg.Messages, logger: logger}
	ih := &injuryHandler{analyzer: cfg.Analyzer, injuries: cfg.Injuries, logger: logger}
	wh := &workoutHandler{workouts: cfg.Workouts, logger: logger}
	ph := &programHandler{generator: cfg.Generator, programs: cfg.Programs, logger: logger}
	eh := &exerciseHandler{matcher: cfg.Matcher, logger: logger}

	mux := http.NewServeMux()

	// Voice sessions + parse
	mux.HandleFunc("POST /api/v1/voice/sessions", vh.startSession)
	mux.HandleFunc("GET /api/v1/voice/sessions/current", vh.currentSession)
	mux.HandleFunc("POST /api/v1/voice/sessions/{id}/touch", vh.touchSession)
	mux.HandleFunc("POST /api/v1/voice/parse", vh.parse)

	// Chat
	mux.HandleFunc("POST /api/v1/chat/classify", ch.classify)
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("GET /api/v1/chat/history", ch.history)

	// Injuries
	mux.HandleFunc("POST /api/v1/injury/analyze", ih.analyze)
	mux.HandleFunc("GET /api/v1/injuries", ih.listInjuries)
	mux.HandleFunc("GET /api/v1/injuries/{id}", ih.getInjury)
	mux.HandleFunc("PATCH /api/v1/injuries/{id}/status", ih.updateInjuryStatus)

	// Workouts
	mux.HandleFunc("POST /api/v1/workouts", wh.createWorkout)
	mux.HandleFunc("GET /api/v1/workouts", wh.listWorkouts)
	mux.HandleFunc("GET /api/v1/workouts/{id}", wh.getWorkout)
	mux.HandleFunc("POST /api/v1/workouts/{id}/sets", wh.appendSets)
	mux.HandleFunc("DELETE /api/v1/workouts/{id}", wh.deleteWorkout)

	// Programs
	mux.HandleFunc("POST /api/v1/programs/generate", ph.generate)
	mux.HandleFunc("GET /api/v1/programs", ph.listPrograms)
	mux.HandleFunc("GET /api/v1/programs/{id}", ph.getProgram)
	mux.HandleFunc("PATCH /api/v1/programs/{id}/status", ph.updateProgramStatus)
	mux.HandleFunc("DELETE /api/v1/programs/{id}", ph.deleteProgram)

	// Exercise catalog
	mux.HandleFunc("GET /api/v1/exercises/search", eh.searchExercises)

	// Weather (optional: only registered if a client is provided)
	if cfg.Weather != nil {
		wxh := &weatherHandler{client: cfg.Weather, logger: logger}
		mux.HandleFunc("GET /api/v1/weather", wxh.getWeather)
	}

	// Rate limiter: per-caller token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	auth := &authenticator{secret: cfg.JWTSecret, logger: logger}

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers. Auth is innermost so unauthenticated floods hit
	// the limiter first.
	var handler http.Handler = mux
	handler = authMiddleware(auth)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
