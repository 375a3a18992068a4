package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/program"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// programHandler holds dependencies for training program endpoints.
type programHandler struct {
	generator *program.Generator
	programs  *store.ProgramStore
	logger    *slog.Logger
}

// programItem is the JSON shape of a program; Plan is omitted in listings.
type programItem struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Goal      string          `json:"goal"`
	Weeks     int32           `json:"weeks"`
	Status    string          `json:"status"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toProgramItem(p *store.Program, withPlan bool) programItem {
	item := programItem{
		ID:        p.ID,
		Title:     p.Title,
		Goal:      p.Goal,
		Weeks:     p.Weeks,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if withPlan {
		item.Plan = p.Plan
	}
	return item
}

// generateRequest is the request body for POST /api/v1/programs/generate.
type generateRequest struct {
	Goal     string `json:"goal"`
	Weeks    int32  `json:"weeks"`
	Injuries string `json:"injuries"`
}

// generate handles POST /api/v1/programs/generate.
func (h *programHandler) generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req generateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	p, err := h.generator.Generate(r.Context(), userID, req.Goal, req.Weeks, req.Injuries)
	if err != nil {
		switch {
		case errors.Is(err, program.ErrEmptyGoal):
			WriteError(w, http.StatusBadRequest, "empty_goal", "goal is empty", h.logger)
		case errors.Is(err, program.ErrInvalidWeeks):
			WriteError(w, http.StatusBadRequest, "invalid_weeks", "weeks must be between 1 and 52", h.logger)
		case errors.Is(err, program.ErrBadPlan):
			h.logger.Warn("generated plan failed validation", "error", err, "user_id", userID)
			WriteError(w, http.StatusBadGateway, "bad_plan", "generated plan failed validation, try again", h.logger)
		case errors.Is(err, llm.ErrAllProvidersFailed), errors.Is(err, llm.ErrCircuitOpen):
			WriteError(w, http.StatusServiceUnavailable, "llm_unavailable", "language model providers unavailable", h.logger)
		default:
			h.logger.Error("generating program", "error", err, "user_id", userID)
			WriteError(w, http.StatusInternalServerError, "generate_failed", "failed to generate program", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusCreated, toProgramItem(p, true), h.logger)
}

// listPrograms handles GET /api/v1/programs.
func (h *programHandler) listPrograms(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	limit := min(parseIntParam(r, "limit", 20), 100)
	offset := parseIntParam(r, "offset", 0)

	programs, err := h.programs.List(r.Context(), userID, int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing programs", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list programs", h.logger)
		return
	}

	items := make([]programItem, len(programs))
	for i, p := range programs {
		items[i] = toProgramItem(p, false)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// getProgram handles GET /api/v1/programs/{id}: includes the plan.
func (h *programHandler) getProgram(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid program ID", h.logger)
		return
	}

	p, err := h.programs.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "program not found", h.logger)
			return
		}
		h.logger.Error("getting program", "error", err, "program_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get program", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toProgramItem(p, true), h.logger)
}

// updateProgramStatus handles PATCH /api/v1/programs/{id}/status.
// Activating a program abandons any other active one.
func (h *programHandler) updateProgramStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid program ID", h.logger)
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := h.programs.UpdateStatus(r.Context(), userID, id, req.Status); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			WriteError(w, http.StatusNotFound, "not_found", "program not found", h.logger)
		case errors.Is(err, store.ErrInvalidTransition):
			WriteError(w, http.StatusConflict, "invalid_transition", err.Error(), h.logger)
		default:
			h.logger.Error("updating program status", "error", err, "program_id", id)
			WriteError(w, http.StatusInternalServerError, "update_failed", "failed to update status", h.logger)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteProgram handles DELETE /api/v1/programs/{id}.
func (h *programHandler) deleteProgram(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid program ID", h.logger)
		return
	}

	if err := h.programs.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "program not found", h.logger)
			return
		}
		h.logger.Error("deleting program", "error", err, "program_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete program", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
