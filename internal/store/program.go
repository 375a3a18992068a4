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

// programTransitions defines the allowed status moves for generated
// programs: draft -> active -> {completed, abandoned}. Drafts may also be
// abandoned directly; terminal states stay terminal.
var programTransitions = map[string][]string{
	ProgramDraft:  {ProgramActive, ProgramAbandoned},
	ProgramActive: {ProgramCompleted, ProgramAbandoned},
}

// ProgramStore manages LLM-generated training programs.
//
// ProgramStore is safe for concurrent use by multiple goroutines.
type ProgramStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewProgramStore creates a ProgramStore.
func NewProgramStore(pool *pgxpool.Pool, logger *slog.Logger) *ProgramStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgramStore{pool: pool, logger: logger}
}

// Create inserts a program in draft status.
func (s *ProgramStore) Create(ctx context.Context, p *Program) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO generated_programs (user_id, title, goal, weeks, plan)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.UserID, p.Title, p.Goal, p.Weeks, p.Plan,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert program: %w", err)
	}

	s.logger.Debug("created program", "id", id, "user_id", p.UserID, "weeks", p.Weeks)
	return id, nil
}

// Get retrieves one program, owner-scoped.
func (s *ProgramStore) Get(ctx context.Context, userID, id uuid.UUID) (*Program, error) {
	p, err := scanProgram(s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, goal, weeks, plan, status, created_at, updated_at
		FROM generated_programs WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get program %s: %w", id, err)
	}
	return p, nil
}

// List returns a user's programs, newest first, plan blobs included.
func (s *ProgramStore) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*Program, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, goal, weeks, plan, status, created_at, updated_at
		FROM generated_programs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var programs []*Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return programs, nil
}

// UpdateStatus moves a program along its lifecycle under a row lock.
// Activating a program abandons any other active program for the same user
// inside the same transaction, so at most one program is active at a time.
func (s *ProgramStore) UpdateStatus(ctx context.Context, userID, id uuid.UUID, newStatus string) error {
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
		`SELECT status FROM generated_programs WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("lock program: %w", err)
	}

	if !transitionAllowed(programTransitions, current, newStatus) {
		return fmt.Errorf("program %s -> %s: %w", current, newStatus, ErrInvalidTransition)
	}

	if newStatus == ProgramActive {
		_, err = tx.Exec(ctx, `
			UPDATE generated_programs SET status = $2, updated_at = now()
			WHERE user_id = $1 AND status = $3 AND id <> $4`,
			userID, ProgramAbandoned, ProgramActive, id)
		if err != nil {
			return fmt.Errorf("abandon previous active program: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE generated_programs SET status = $2, updated_at = now() WHERE id = $1`,
		id, newStatus)
	if err != nil {
		return fmt.Errorf("update program status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("updated program status", "id", id, "from", current, "to", newStatus)
	return nil
}

// Delete removes a program, owner-scoped.
func (s *ProgramStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM generated_programs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete program %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("program %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanProgram(row pgx.Row) (*Program, error) {
	var p Program
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Goal, &p.Weeks,
		&p.Plan, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
