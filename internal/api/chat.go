package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Zchasse63/voice-fit-sub003/internal/chat"
	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// chatHandler holds dependencies for the classify and coach endpoints.
type chatHandler struct {
	classifier *chat.Classifier
	coach      *chat.Coach
	messages   *store.ChatStore
	logger     *slog.Logger
}

// classifyRequest is the request body for POST /api/v1/chat/classify.
type classifyRequest struct {
	Message string `json:"message"`
}

// classify handles POST /api/v1/chat/classify. It never surfaces provider
// failures: keyword rules answer when the LLMs are down.
func (h *chatHandler) classify(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, h.logger); !ok {
		return
	}

	var req classifyRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "empty_message", "message is empty", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, h.classifier.Classify(r.Context(), req.Message), h.logger)
}

// chatRequest is the request body for POST /api/v1/chat.
type chatRequest struct {
	Message string `json:"message"`
}

// send handles POST /api/v1/chat: one coach exchange.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	reply, err := h.coach.Chat(r.Context(), userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			WriteError(w, http.StatusBadRequest, "empty_message", "message is empty", h.logger)
		case errors.Is(err, chat.ErrMessageTooLong):
			WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds the size limit", h.logger)
		case errors.Is(err, llm.ErrAllProvidersFailed), errors.Is(err, llm.ErrCircuitOpen):
			WriteError(w, http.StatusServiceUnavailable, "llm_unavailable", "language model providers unavailable", h.logger)
		default:
			h.logger.Error("coach chat", "error", err, "user_id", userID)
			WriteError(w, http.StatusInternalServerError, "chat_failed", "failed to answer", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, reply, h.logger)
}

// historyItem is one chat turn in the history listing.
type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Intent  string `json:"intent,omitempty"`
	Seq     int32  `json:"seq"`
}

// history handles GET /api/v1/chat/history: recent turns, oldest first.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	limit := min(parseIntParam(r, "limit", 50), 200)
	messages, err := h.messages.Recent(r.Context(), userID, int32(limit))
	if err != nil {
		h.logger.Error("listing chat history", "error", err, "user_id", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list history", h.logger)
		return
	}

	items := make([]historyItem, len(messages))
	for i, m := range messages {
		items[i] = historyItem{Role: m.Role, Content: m.Content, Intent: m.Intent, Seq: m.SequenceNumber}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}
