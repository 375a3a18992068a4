// Package api provides the JSON REST API server for VoiceFit.
//
// # Architecture
//
// The API server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health: returns {"status":"ok"}
//   - GET /ready : pings the database, returns pool stats
//
// Voice (ownership-enforced):
//   - POST /api/v1/voice/sessions             : open a new voice session
//   - GET  /api/v1/voice/sessions/current     : caller's open session
//   - POST /api/v1/voice/sessions/{id}/touch  : extend the session deadline
//   - POST /api/v1/voice/parse                : transcript → structured workout
//
// Chat:
//   - POST /api/v1/chat/classify: intent classification (keyword fallback)
//   - POST /api/v1/chat         : coach chat with retrieval context
//   - GET  /api/v1/chat/history : recent turns
//
// Injuries (ownership-enforced):
//   - POST  /api/v1/injury/analyze       : record + assess an injury
//   - GET   /api/v1/injuries             : list, optional ?status=
//   - GET   /api/v1/injuries/{id}        : get by ID
//   - PATCH /api/v1/injuries/{id}/status : lifecycle transition
//
// Workouts (ownership-enforced):
//   - POST   /api/v1/workouts          : manual log
//   - GET    /api/v1/workouts          : paginated listing
//   - GET    /api/v1/workouts/{id}     : full log with sets
//   - POST   /api/v1/workouts/{id}/sets: append sets
//   - DELETE /api/v1/workouts/{id}     : delete log
//
// Programs (ownership-enforced):
//   - POST   /api/v1/programs/generate    : LLM-generated draft program
//   - GET    /api/v1/programs             : paginated listing
//   - GET    /api/v1/programs/{id}        : get with plan
//   - PATCH  /api/v1/programs/{id}/status : lifecycle transition
//   - DELETE /api/v1/programs/{id}        : delete program
//
// Catalog and weather:
//   - GET /api/v1/exercises/search: resolve a free-text exercise name
//   - GET /api/v1/weather         : run conditions for coordinates
//
// # Authentication
//
// Every /api/v1 route requires a bearer JWT signed with HS256. The token
// subject is the user's UUID; all stores scope queries to it, and a
// resource owned by someone else is indistinguishable from a missing one
// (404).
//
// # Error Handling
//
// Errors use an envelope format:
//
//	{"error": {"code": "...", "message": "..."}}
//
// When all language-model providers are unavailable, parse, chat, injury
// analysis and program generation answer 503 llm_unavailable; intent
// classification instead degrades to keyword rules and still answers 200.
//
// # Security
//
// The middleware stack enforces:
//   - Per-caller rate limiting (token bucket, 60 req/min burst)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, HSTS, X-Frame-Options, etc.)
package api
