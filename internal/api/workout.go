package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// workoutHandler holds dependencies for manual workout logging.
type workoutHandler struct {
	workouts *store.WorkoutStore
	logger   *slog.Logger
}

// setInput is one set in a workout create/append request.
type setInput struct {
	ExerciseID      *uuid.UUID `json:"exerciseId"`
	ExerciseName    string     `json:"exerciseName"`
	Reps            *int32     `json:"reps"`
	WeightKg        *float64   `json:"weightKg"`
	DurationSeconds *int32     `json:"durationSeconds"`
	DistanceM       *float64   `json:"distanceM"`
}

// createWorkoutRequest is the request body for POST /api/v1/workouts.
type createWorkoutRequest struct {
	Notes           string     `json:"notes"`
	DurationSeconds *int32     `json:"durationSeconds"`
	Sets            []setInput `json:"sets"`
}

func (h *workoutHandler) buildSets(inputs []setInput) ([]store.WorkoutSet, string) {
	sets := make([]store.WorkoutSet, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.ExerciseName)
		if name == "" {
			return nil, "every set needs an exercise name"
		}
		if in.Reps != nil && *in.Reps < 0 {
			return nil, "reps must not be negative"
		}
		if in.WeightKg != nil && *in.WeightKg < 0 {
			return nil, "weight must not be negative"
		}
		sets = append(sets, store.WorkoutSet{
			ExerciseID:      in.ExerciseID,
			ExerciseName:    name,
			Reps:            in.Reps,
			WeightKg:        in.WeightKg,
			DurationSeconds: in.DurationSeconds,
			DistanceM:       in.DistanceM,
		})
	}
	return sets, ""
}

// createWorkout handles POST /api/v1/workouts: manual logging.
func (h *workoutHandler) createWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req createWorkoutRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if len(req.Sets) == 0 {
		WriteError(w, http.StatusBadRequest, "no_sets", "a workout needs at least one set", h.logger)
		return
	}

	sets, msg := h.buildSets(req.Sets)
	if msg != "" {
		WriteError(w, http.StatusBadRequest, "invalid_set", msg, h.logger)
		return
	}

	id, err := h.workouts.Create(r.Context(), &store.WorkoutLog{
		UserID:          userID,
		Source:          store.SourceManual,
		Notes:           strings.TrimSpace(req.Notes),
		DurationSeconds: req.DurationSeconds,
		Sets:            sets,
	})
	if err != nil {
		h.logger.Error("creating workout", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "create_failed", "failed to create workout", h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"id": id}, h.logger)
}

// appendSetsRequest is the request body for POST /api/v1/workouts/{id}/sets.
type appendSetsRequest struct {
	Sets []setInput `json:"sets"`
}

// appendSets handles POST /api/v1/workouts/{id}/sets.
func (h *workoutHandler) appendSets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid workout ID", h.logger)
		return
	}

	var req appendSetsRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if len(req.Sets) == 0 {
		WriteError(w, http.StatusBadRequest, "no_sets", "nothing to append", h.logger)
		return
	}

	sets, msg := h.buildSets(req.Sets)
	if msg != "" {
		WriteError(w, http.StatusBadRequest, "invalid_set", msg, h.logger)
		return
	}

	if err := h.workouts.AppendSets(r.Context(), userID, id, sets); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "workout not found", h.logger)
			return
		}
		h.logger.Error("appending sets", "error", err, "workout_id", id)
		WriteError(w, http.StatusInternalServerError, "append_failed", "failed to append sets", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// workoutItem summarizes a workout log for listings.
type workoutItem struct {
	ID              uuid.UUID `json:"id"`
	LoggedAt        time.Time `json:"loggedAt"`
	Source          string    `json:"source"`
	Notes           string    `json:"notes,omitempty"`
	DurationSeconds *int32    `json:"durationSeconds,omitempty"`
	SetCount        int32     `json:"setCount"`
}

// listWorkouts handles GET /api/v1/workouts.
func (h *workoutHandler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	limit := min(parseIntParam(r, "limit", 20), 100)
	offset := parseIntParam(r, "offset", 0)

	logs, err := h.workouts.List(r.Context(), userID, int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing workouts", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list workouts", h.logger)
		return
	}

	items := make([]workoutItem, len(logs))
	for i, wl := range logs {
		items[i] = workoutItem{
			ID:              wl.ID,
			LoggedAt:        wl.LoggedAt,
			Source:          wl.Source,
			Notes:           wl.Notes,
			DurationSeconds: wl.DurationSeconds,
			SetCount:        wl.SetCount,
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// setItem is one set in the workout detail view.
type setItem struct {
	ExerciseID      *uuid.UUID `json:"exerciseId,omitempty"`
	ExerciseName    string     `json:"exerciseName"`
	Seq             int32      `json:"seq"`
	Reps            *int32     `json:"reps,omitempty"`
	WeightKg        *float64   `json:"weightKg,omitempty"`
	DurationSeconds *int32     `json:"durationSeconds,omitempty"`
	DistanceM       *float64   `json:"distanceM,omitempty"`
}

// workoutDetail is the full log with its sets.
type workoutDetail struct {
	workoutItem
	Sets []setItem `json:"sets"`
}

// getWorkout handles GET /api/v1/workouts/{id}: full log with sets.
func (h *workoutHandler) getWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid workout ID", h.logger)
		return
	}

	wl, err := h.workouts.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "workout not found", h.logger)
			return
		}
		h.logger.Error("getting workout", "error", err, "workout_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get workout", h.logger)
		return
	}

	detail := workoutDetail{
		workoutItem: workoutItem{
			ID:              wl.ID,
			LoggedAt:        wl.LoggedAt,
			Source:          wl.Source,
			Notes:           wl.Notes,
			DurationSeconds: wl.DurationSeconds,
			SetCount:        wl.SetCount,
		},
		Sets: make([]setItem, len(wl.Sets)),
	}
	for i, s := range wl.Sets {
		detail.Sets[i] = setItem{
			ExerciseID:      s.ExerciseID,
			ExerciseName:    s.ExerciseName,
			Seq:             s.SequenceNumber,
			Reps:            s.Reps,
			WeightKg:        s.WeightKg,
			DurationSeconds: s.DurationSeconds,
			DistanceM:       s.DistanceM,
		}
	}
	WriteJSON(w, http.StatusOK, detail, h.logger)
}

// deleteWorkout handles DELETE /api/v1/workouts/{id}.
func (h *workoutHandler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid workout ID", h.logger)
		return
	}

	if err := h.workouts.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "workout not found", h.logger)
			return
		}
		h.logger.Error("deleting workout", "error", err, "workout_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete workout", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
