package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatStore persists coach chat history per user.
//
// ChatStore is safe for concurrent use by multiple goroutines.
type ChatStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewChatStore creates a ChatStore.
func NewChatStore(pool *pgxpool.Pool, logger *slog.Logger) *ChatStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatStore{pool: pool, logger: logger}
}

// Append adds messages to a user's history in one transaction, assigning
// consecutive sequence numbers. A per-user advisory lock serializes
// concurrent appends; sequence numbers stay gapless.
func (s *ChatStore) Append(ctx context.Context, userID uuid.UUID, messages []ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	// hashtextextended gives a stable 64-bit key for the advisory lock.
	_, err = tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID)
	if err != nil {
		return fmt.Errorf("acquire chat lock: %w", err)
	}

	var maxSeq int32
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM chat_messages WHERE user_id = $1`,
		userID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("get max sequence number: %w", err)
	}

	for i, msg := range messages {
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- loop index bounded by slice length
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (user_id, role, content, intent, sequence_number)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
			userID, msg.Role, msg.Content, msg.Intent, seq)
		if err != nil {
			return fmt.Errorf("insert chat message %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended chat messages", "user_id", userID, "count", len(messages))
	return nil
}

// Recent returns the user's most recent messages in chronological order.
func (s *ChatStore) Recent(ctx context.Context, userID uuid.UUID, limit int32) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, role, content, COALESCE(intent, ''), sequence_number, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY sequence_number DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content,
			&m.Intent, &m.SequenceNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
