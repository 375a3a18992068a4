package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

const (
	MaxMessageLen = 4000
	historyTurns  = 12
	knowledgeTopK = 4
)

// Input validation errors, checked before any provider call.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
)

const coachPrompt = `You are a concise, encouraging fitness coach.
Ground your advice in the reference material when it is provided; say so
when you are unsure instead of inventing numbers. Never diagnose medical
conditions; for pain or injury, advise rest and a professional assessment.
Keep answers under 200 words.`

// Coach runs the advice chat: knowledge retrieval, recent history, one
// completion, and both turns persisted with gapless sequence numbers.
type Coach struct {
	client     llm.Client
	matcher    *search.Matcher
	messages   *store.ChatStore
	classifier *Classifier
	logger     *slog.Logger

	temperature float32
	maxTokens   int
}

func NewCoach(client llm.Client, matcher *search.Matcher, messages *store.ChatStore,
	classifier *Classifier, temperature float32, maxTokens int, logger *slog.Logger) *Coach {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{
		client:      client,
		matcher:     matcher,
		messages:    messages,
		classifier:  classifier,
		logger:      logger.With("component", "coach"),
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Reply is one completed chat exchange.
type Reply struct {
	Message string `json:"message"`
	Intent  string `json:"intent"`
	Sources int    `json:"sources"` // knowledge chunks used
}

// Chat answers one user message. Retrieval and history failures degrade to
// an uninformed answer; only a provider failure is returned to the caller.
func (c *Coach) Chat(ctx context.Context, userID uuid.UUID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if len(message) > MaxMessageLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, len(message), MaxMessageLen)
	}

	cls := c.classifier.Classify(ctx, message)

	chunks := c.matcher.Context(ctx, message, knowledgeTopK)

	history, err := c.messages.Recent(ctx, userID, historyTurns)
	if err != nil {
		c.logger.Warn("history load failed, answering without it", "error", err)
		history = nil
	}

	msgs := make([]llm.Message, 0, len(history)+3)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: coachPrompt})
	if len(chunks) > 0 {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Reference material:\n" + strings.Join(chunks, "\n---\n"),
		})
	}
	for _, h := range history {
		role := llm.RoleUser
		if h.Role == "assistant" {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	answer, err := c.client.Complete(ctx, llm.Request{
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("coach completion: %w", err)
	}
	answer = strings.TrimSpace(answer)

	if err := c.messages.Append(ctx, userID, []store.ChatMessage{
		{UserID: userID, Role: "user", Content: message, Intent: cls.Intent},
		{UserID: userID, Role: "assistant", Content: answer},
	}); err != nil {
		// The user already paid for the completion; losing history is
		// worse than returning it unrecorded.
		c.logger.Error("persisting chat turns failed", "error", err)
	}

	return &Reply{Message: answer, Intent: cls.Intent, Sources: len(chunks)}, nil
}
