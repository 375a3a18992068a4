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

// injuryTransitions defines the allowed status moves for injury logs.
// Reopening a resolved injury is allowed (re-aggravation is common).
var injuryTransitions = map[string][]string{
	InjuryActive:     {InjuryRecovering, InjuryResolved},
	InjuryRecovering: {InjuryActive, InjuryResolved},
	InjuryResolved:   {InjuryActive},
}

// InjuryStore manages injury logs.
//
// InjuryStore is safe for concurrent use by multiple goroutines.
type InjuryStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewInjuryStore creates an InjuryStore.
func NewInjuryStore(pool *pgxpool.Pool, logger *slog.Logger) *InjuryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InjuryStore{pool: pool, logger: logger}
}

// Create inserts an injury log. analysis may be nil.
func (s *InjuryStore) Create(ctx context.Context, il *InjuryLog) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO injury_logs (user_id, body_part, description, severity, analysis)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		il.UserID, il.BodyPart, il.Description, il.Severity, il.Analysis,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert injury log: %w", err)
	}

	s.logger.Debug("created injury log", "id", id, "user_id", il.UserID, "body_part", il.BodyPart)
	return id, nil
}

// Get retrieves one injury log, owner-scoped.
func (s *InjuryStore) Get(ctx context.Context, userID, id uuid.UUID) (*InjuryLog, error) {
	il, err := scanInjury(s.pool.QueryRow(ctx, `
		SELECT id, user_id, body_part, description, severity, status, analysis, created_at, updated_at
		FROM injury_logs WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("injury log %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get injury log %s: %w", id, err)
	}
	return il, nil
}

// List returns a user's injury logs, newest first. status filters when
// non-empty.
func (s *InjuryStore) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*InjuryLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, body_part, description, severity, status, analysis, created_at, updated_at
		FROM injury_logs
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list injury logs: %w", err)
	}
	defer rows.Close()

	var logs []*InjuryLog
	for rows.Next() {
		il, err := scanInjury(rows)
		if err != nil {
			return nil, fmt.Errorf("scan injury log: %w", err)
		}
		logs = append(logs, il)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate injury logs: %w", err)
	}
	return logs, nil
}

// UpdateStatus moves an injury log along its lifecycle, validating the
// transition against the current status under a row lock.
func (s *InjuryStore) UpdateStatus(ctx context.Context, userID, id uuid.UUID, newStatus string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM injury_logs WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("injury log %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("lock injury log: %w", err)
	}

	if !transitionAllowed(injuryTransitions, current, newStatus) {
		return fmt.Errorf("injury %s -> %s: %w", current, newStatus, ErrInvalidTransition)
	}

	_, err = tx.Exec(ctx,
		`UPDATE injury_logs SET status = $2, updated_at = now() WHERE id = $1`,
		id, newStatus)
	if err != nil {
		return fmt.Errorf("update injury status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("updated injury status", "id", id, "from", current, "to", newStatus)
	return nil
}

// SetAnalysis attaches a structured LLM assessment to an injury log.
func (s *InjuryStore) SetAnalysis(ctx context.Context, userID, id uuid.UUID, analysis []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE injury_logs SET analysis = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2`, id, userID, analysis)
	if err != nil {
		return fmt.Errorf("set injury analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("injury log %s: %w", id, ErrNotFound)
	}
	return nil
}

// transitionAllowed reports whether moving current -> next is permitted by
// the given lifecycle table. Idempotent updates (same status) are allowed.
func transitionAllowed(table map[string][]string, current, next string) bool {
	if current == next {
		return true
	}
	for _, allowed := range table[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

func scanInjury(row pgx.Row) (*InjuryLog, error) {
	var il InjuryLog
	if err := row.Scan(&il.ID, &il.UserID, &il.BodyPart, &il.Description,
		&il.Severity, &il.Status, &il.Analysis, &il.CreatedAt, &il.UpdatedAt); err != nil {
		return nil, err
	}
	return &il, nil
}
