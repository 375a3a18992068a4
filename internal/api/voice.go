package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/voice"
)

// voiceHandler holds dependencies for voice session and parse endpoints.
type voiceHandler struct {
	sessions *voice.SessionStore
	parser   *voice.Parser
	logger   *slog.Logger
}

// sessionView decorates a session with the warning flag and countdown the
// client renders.
type sessionView struct {
	*voice.Session
	Expiring         bool  `json:"expiring"`
	SecondsRemaining int64 `json:"secondsRemaining"`
}

func toSessionView(s *voice.Session) sessionView {
	now := time.Now()
	return sessionView{
		Session:          s,
		Expiring:         s.Status == voice.StatusExpiring,
		SecondsRemaining: int64(s.Remaining(now).Seconds()),
	}
}

// startSession handles POST /api/v1/voice/sessions: opens a fresh session,
// expiring any prior open one.
func (h *voiceHandler) startSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	sess, err := h.sessions.Start(r.Context(), userID)
	if err != nil {
		h.logger.Error("starting voice session", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "session_failed", "failed to start session", h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, toSessionView(sess), h.logger)
}

// currentSession handles GET /api/v1/voice/sessions/current: returns the
// caller's open session or 404.
func (h *voiceHandler) currentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	sess, err := h.sessions.Open(r.Context(), userID)
	if err != nil {
		if errors.Is(err, voice.ErrNoOpenSession) {
			WriteError(w, http.StatusNotFound, "no_session", "no open voice session", h.logger)
			return
		}
		h.logger.Error("loading voice session", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "session_failed", "failed to load session", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toSessionView(sess), h.logger)
}

// touchSession handles POST /api/v1/voice/sessions/{id}/touch: extends the
// session deadline. An already-expired session answers 410.
func (h *voiceHandler) touchSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return
	}

	sess, err := h.sessions.Touch(r.Context(), userID, id, false)
	if err != nil {
		switch {
		case errors.Is(err, voice.ErrSessionExpired):
			WriteError(w, http.StatusGone, "session_expired", "voice session has expired", h.logger)
		case errors.Is(err, voice.ErrNoOpenSession):
			WriteError(w, http.StatusNotFound, "not_found", "voice session not found", h.logger)
		default:
			h.logger.Error("touching voice session", "error", err, "session_id", id)
			WriteError(w, http.StatusInternalServerError, "session_failed", "failed to touch session", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, toSessionView(sess), h.logger)
}

// parseRequest is the request body for POST /api/v1/voice/parse.
type parseRequest struct {
	Transcript string `json:"transcript"`
	Save       bool   `json:"save"`
}

// parseResponse mirrors voice.Result with the session decorated.
type parseResponse struct {
	Exercises      []voice.ParsedExercise `json:"exercises"`
	Notes          string                 `json:"notes,omitempty"`
	Session        sessionView            `json:"session"`
	SessionRenewed bool                   `json:"sessionRenewed"`
	WorkoutLogID   *uuid.UUID             `json:"workoutLogId,omitempty"`
}

// parse handles POST /api/v1/voice/parse: the core transcript pipeline.
func (h *voiceHandler) parse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req parseRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.parser.Parse(r.Context(), userID, req.Transcript, req.Save)
	if err != nil {
		switch {
		case errors.Is(err, voice.ErrEmptyTranscript):
			WriteError(w, http.StatusBadRequest, "empty_transcript", "transcript is empty", h.logger)
		case errors.Is(err, voice.ErrTranscriptTooLong):
			WriteError(w, http.StatusBadRequest, "transcript_too_long", err.Error(), h.logger)
		case errors.Is(err, voice.ErrNoExercises):
			WriteError(w, http.StatusBadRequest, "no_exercises", "no exercises recognized in transcript", h.logger)
		case errors.Is(err, llm.ErrAllProvidersFailed), errors.Is(err, llm.ErrCircuitOpen):
			WriteError(w, http.StatusServiceUnavailable, "llm_unavailable", "language model providers unavailable", h.logger)
		default:
			h.logger.Error("parsing transcript", "error", err, "user_id", userID)
			WriteError(w, http.StatusInternalServerError, "parse_failed", "failed to parse transcript", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, parseResponse{
		Exercises:      result.Exercises,
		Notes:          result.Notes,
		Session:        toSessionView(result.Session),
		SessionRenewed: result.SessionRenewed,
		WorkoutLogID:   result.WorkoutLogID,
	}, h.logger)
}
