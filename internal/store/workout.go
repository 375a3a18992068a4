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

// WorkoutStore manages workout logs and their sets.
//
// WorkoutStore is safe for concurrent use by multiple goroutines.
type WorkoutStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewWorkoutStore creates a WorkoutStore.
func NewWorkoutStore(pool *pgxpool.Pool, logger *slog.Logger) *WorkoutStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkoutStore{pool: pool, logger: logger}
}

// Create inserts a workout log and its sets in one transaction. Sets are
// assigned gapless sequence numbers in input order.
func (s *WorkoutStore) Create(ctx context.Context, log *WorkoutLog) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO workout_logs (user_id, logged_at, source, notes, duration_seconds, set_count)
		VALUES ($1, COALESCE($2, now()), $3, NULLIF($4, ''), $5, $6)
		RETURNING id`,
		log.UserID, nullableTime(log.LoggedAt), log.Source, log.Notes,
		log.DurationSeconds, int32(len(log.Sets)),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert workout log: %w", err)
	}

	for i, set := range log.Sets {
		seq := int32(i) + 1 // #nosec G115 -- loop index bounded by slice length
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_sets
				(workout_log_id, exercise_id, exercise_name, sequence_number,
				 reps, weight_kg, duration_seconds, distance_m)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, set.ExerciseID, set.ExerciseName, seq,
			set.Reps, set.WeightKg, set.DurationSeconds, set.DistanceM)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert workout set %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("created workout log", "id", id, "user_id", log.UserID, "sets", len(log.Sets))
	return id, nil
}

// AppendSets adds sets to an existing log, continuing its sequence. The log
// row is locked for the duration of the transaction so concurrent appends
// cannot race on sequence numbers.
func (s *WorkoutStore) AppendSets(ctx context.Context, userID, logID uuid.UUID, sets []WorkoutSet) error {
	if len(sets) == 0 {
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

	// SELECT ... FOR UPDATE serializes appends per log.
	var owner uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM workout_logs WHERE id = $1 FOR UPDATE`, logID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("workout log %s: %w", logID, ErrNotFound)
		}
		return fmt.Errorf("lock workout log: %w", err)
	}
	if owner != userID {
		return fmt.Errorf("workout log %s: %w", logID, ErrNotFound)
	}

	var maxSeq int32
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM workout_sets WHERE workout_log_id = $1`,
		logID,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("get max sequence number: %w", err)
	}

	for i, set := range sets {
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- loop index bounded by slice length
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_sets
				(workout_log_id, exercise_id, exercise_name, sequence_number,
				 reps, weight_kg, duration_seconds, distance_m)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			logID, set.ExerciseID, set.ExerciseName, seq,
			set.Reps, set.WeightKg, set.DurationSeconds, set.DistanceM)
		if err != nil {
			return fmt.Errorf("insert workout set %d: %w", i, err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE workout_logs
		SET set_count = set_count + $2, updated_at = now()
		WHERE id = $1`, logID, int32(len(sets)))
	if err != nil {
		return fmt.Errorf("update workout log metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended workout sets", "log_id", logID, "count", len(sets))
	return nil
}

// Get retrieves one workout log with its sets, owner-scoped.
func (s *WorkoutStore) Get(ctx context.Context, userID, logID uuid.UUID) (*WorkoutLog, error) {
	var wl WorkoutLog
	var notes *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, logged_at, source, notes, duration_seconds, set_count, created_at, updated_at
		FROM workout_logs WHERE id = $1 AND user_id = $2`, logID, userID,
	).Scan(&wl.ID, &wl.UserID, &wl.LoggedAt, &wl.Source, &notes,
		&wl.DurationSeconds, &wl.SetCount, &wl.CreatedAt, &wl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("workout log %s: %w", logID, ErrNotFound)
		}
		return nil, fmt.Errorf("get workout log %s: %w", logID, err)
	}
	if notes != nil {
		wl.Notes = *notes
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, workout_log_id, exercise_id, exercise_name, sequence_number,
		       reps, weight_kg, duration_seconds, distance_m
		FROM workout_sets WHERE workout_log_id = $1
		ORDER BY sequence_number`, logID)
	if err != nil {
		return nil, fmt.Errorf("get workout sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var set WorkoutSet
		if err := rows.Scan(&set.ID, &set.WorkoutLogID, &set.ExerciseID, &set.ExerciseName,
			&set.SequenceNumber, &set.Reps, &set.WeightKg, &set.DurationSeconds, &set.DistanceM); err != nil {
			return nil, fmt.Errorf("scan workout set: %w", err)
		}
		wl.Sets = append(wl.Sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workout sets: %w", err)
	}

	return &wl, nil
}

// List returns a user's workout logs newest first, without sets.
func (s *WorkoutStore) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*WorkoutLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, logged_at, source, notes, duration_seconds, set_count, created_at, updated_at
		FROM workout_logs
		WHERE user_id = $1
		ORDER BY logged_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}
	defer rows.Close()

	var logs []*WorkoutLog
	for rows.Next() {
		var wl WorkoutLog
		var notes *string
		if err := rows.Scan(&wl.ID, &wl.UserID, &wl.LoggedAt, &wl.Source, &notes,
			&wl.DurationSeconds, &wl.SetCount, &wl.CreatedAt, &wl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workout log: %w", err)
		}
		if notes != nil {
			wl.Notes = *notes
		}
		logs = append(logs, &wl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workout logs: %w", err)
	}

	return logs, nil
}

// RecentSets returns the user's most recent sets across logs, newest log
// first. Used to give the LLM training context for injury analysis and
// program generation.
func (s *WorkoutStore) RecentSets(ctx context.Context, userID uuid.UUID, limit int32) ([]WorkoutSet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ws.id, ws.workout_log_id, ws.exercise_id, ws.exercise_name, ws.sequence_number,
		       ws.reps, ws.weight_kg, ws.duration_seconds, ws.distance_m
		FROM workout_sets ws
		JOIN workout_logs wl ON wl.id = ws.workout_log_id
		WHERE wl.user_id = $1
		ORDER BY wl.logged_at DESC, ws.sequence_number
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sets: %w", err)
	}
	defer rows.Close()

	var sets []WorkoutSet
	for rows.Next() {
		var set WorkoutSet
		if err := rows.Scan(&set.ID, &set.WorkoutLogID, &set.ExerciseID, &set.ExerciseName,
			&set.SequenceNumber, &set.Reps, &set.WeightKg, &set.DurationSeconds, &set.DistanceM); err != nil {
			return nil, fmt.Errorf("scan recent set: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent sets: %w", err)
	}

	return sets, nil
}

// Delete removes a workout log and its sets (CASCADE), owner-scoped.
func (s *WorkoutStore) Delete(ctx context.Context, userID, logID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM workout_logs WHERE id = $1 AND user_id = $2`, logID, userID)
	if err != nil {
		return fmt.Errorf("delete workout log %s: %w", logID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout log %s: %w", logID, ErrNotFound)
	}

	s.logger.Debug("deleted workout log", "id", logID, "user_id", userID)
	return nil
}
