package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Zchasse63/voice-fit-sub003/internal/search"
)

// exerciseHandler exposes catalog matching to clients.
type exerciseHandler struct {
	matcher *search.Matcher
	logger  *slog.Logger
}

// searchExercises handles GET /api/v1/exercises/search?q=: resolves a
// free-text name against the catalog, same pipeline the voice parser uses.
func (h *exerciseHandler) searchExercises(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, h.logger); !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "q parameter is required", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, h.matcher.Match(r.Context(), q), h.logger)
}
