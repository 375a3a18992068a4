package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/injury"
	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// injuryHandler holds dependencies for injury endpoints.
type injuryHandler struct {
	analyzer *injury.Analyzer
	injuries *store.InjuryStore
	logger   *slog.Logger
}

// injuryItem is the JSON shape of an injury log.
type injuryItem struct {
	ID          uuid.UUID       `json:"id"`
	BodyPart    string          `json:"bodyPart"`
	Description string          `json:"description"`
	Severity    int32           `json:"severity"`
	Status      string          `json:"status"`
	Analysis    json.RawMessage `json:"analysis,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toInjuryItem(il *store.InjuryLog) injuryItem {
	return injuryItem{
		ID:          il.ID,
		BodyPart:    il.BodyPart,
		Description: il.Description,
		Severity:    il.Severity,
		Status:      il.Status,
		Analysis:    il.Analysis,
		CreatedAt:   il.CreatedAt,
		UpdatedAt:   il.UpdatedAt,
	}
}

// analyzeRequest is the request body for POST /api/v1/injury/analyze.
type analyzeRequest struct {
	BodyPart    string `json:"bodyPart"`
	Description string `json:"description"`
	Severity    int32  `json:"severity"`
}

// analyze handles POST /api/v1/injury/analyze.
func (h *injuryHandler) analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req analyzeRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), userID, req.BodyPart, req.Description, req.Severity)
	if err != nil {
		switch {
		case errors.Is(err, injury.ErrEmptyDescription):
			WriteError(w, http.StatusBadRequest, "empty_description", "description is empty", h.logger)
		case errors.Is(err, injury.ErrDescriptionTooLong):
			WriteError(w, http.StatusBadRequest, "description_too_long", "description exceeds the size limit", h.logger)
		case errors.Is(err, injury.ErrInvalidSeverity):
			WriteError(w, http.StatusBadRequest, "invalid_severity", "severity must be between 1 and 10", h.logger)
		case errors.Is(err, llm.ErrAllProvidersFailed), errors.Is(err, llm.ErrCircuitOpen):
			WriteError(w, http.StatusServiceUnavailable, "llm_unavailable", "language model providers unavailable", h.logger)
		default:
			h.logger.Error("analyzing injury", "error", err, "user_id", userID)
			WriteError(w, http.StatusInternalServerError, "analyze_failed", "failed to analyze injury", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, report, h.logger)
}

// listInjuries handles GET /api/v1/injuries: optionally filtered by status.
func (h *injuryHandler) listInjuries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", store.InjuryActive, store.InjuryRecovering, store.InjuryResolved:
	default:
		WriteError(w, http.StatusBadRequest, "invalid_status", "unknown injury status", h.logger)
		return
	}

	limit := min(parseIntParam(r, "limit", 50), 200)
	offset := parseIntParam(r, "offset", 0)

	injuries, err := h.injuries.List(r.Context(), userID, status, int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing injuries", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list injuries", h.logger)
		return
	}

	items := make([]injuryItem, len(injuries))
	for i, il := range injuries {
		items[i] = toInjuryItem(il)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// getInjury handles GET /api/v1/injuries/{id}.
func (h *injuryHandler) getInjury(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid injury ID", h.logger)
		return
	}

	il, err := h.injuries.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "injury not found", h.logger)
			return
		}
		h.logger.Error("getting injury", "error", err, "id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get injury", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toInjuryItem(il), h.logger)
}

// statusRequest is the request body for PATCH .../status endpoints.
type statusRequest struct {
	Status string `json:"status"`
}

// updateInjuryStatus handles PATCH /api/v1/injuries/{id}/status.
func (h *injuryHandler) updateInjuryStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid injury ID", h.logger)
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := h.injuries.UpdateStatus(r.Context(), userID, id, req.Status); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			WriteError(w, http.StatusNotFound, "not_found", "injury not found", h.logger)
		case errors.Is(err, store.ErrInvalidTransition):
			WriteError(w, http.StatusConflict, "invalid_transition", err.Error(), h.logger)
		default:
			h.logger.Error("updating injury status", "error", err, "id", id)
			WriteError(w, http.StatusInternalServerError, "update_failed", "failed to update status", h.logger)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
