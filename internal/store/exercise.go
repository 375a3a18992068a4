package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ExerciseStore manages the exercise catalog, including the Postgres
// fallback search used when Upstash is unavailable.
//
// ExerciseStore is safe for concurrent use by multiple goroutines.
type ExerciseStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewExerciseStore creates an ExerciseStore.
func NewExerciseStore(pool *pgxpool.Pool, logger *slog.Logger) *ExerciseStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExerciseStore{pool: pool, logger: logger}
}

// Upsert inserts or updates a catalog entry by name. embedding may be nil
// for entries without a precomputed vector.
func (s *ExerciseStore) Upsert(ctx context.Context, ex Exercise, embedding []float32) (uuid.UUID, error) {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO exercises (name, category, muscle_groups, equipment, aliases, embedding)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			category      = EXCLUDED.category,
			muscle_groups = EXCLUDED.muscle_groups,
			equipment     = EXCLUDED.equipment,
			aliases       = EXCLUDED.aliases,
			embedding     = COALESCE(EXCLUDED.embedding, exercises.embedding)
		RETURNING id`,
		ex.Name, ex.Category, ex.MuscleGroups, ex.Equipment, ex.Aliases, vec,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert exercise %q: %w", ex.Name, err)
	}

	s.logger.Debug("upserted exercise", "id", id, "name", ex.Name, "embedded", vec != nil)
	return id, nil
}

// Get retrieves a catalog entry by ID.
func (s *ExerciseStore) Get(ctx context.Context, id uuid.UUID) (*Exercise, error) {
	var ex Exercise
	var equipment *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, category, muscle_groups, equipment, aliases, created_at
		FROM exercises WHERE id = $1`, id,
	).Scan(&ex.ID, &ex.Name, &ex.Category, &ex.MuscleGroups, &equipment, &ex.Aliases, &ex.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get exercise %s: %w", id, err)
	}
	if equipment != nil {
		ex.Equipment = *equipment
	}
	return &ex, nil
}

// SearchByName matches catalog entries against a free-form name using
// trigram similarity over the name and aliases. This is the fallback path
// when the hosted search index is down, so it deliberately has no external
// dependencies beyond Postgres.
func (s *ExerciseStore) SearchByName(ctx context.Context, query string, limit int32) ([]ExerciseMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category, muscle_groups, equipment, aliases, created_at,
		       GREATEST(
		           similarity(name, $1),
		           COALESCE((SELECT MAX(similarity(a, $1)) FROM unnest(aliases) AS a), 0)
		       ) AS score
		FROM exercises
		WHERE name % $1
		   OR EXISTS (SELECT 1 FROM unnest(aliases) AS a WHERE a % $1)
		   OR name ILIKE '%' || $1 || '%'
		ORDER BY score DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search exercises %q: %w", query, err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// SearchByEmbedding matches catalog entries by cosine distance against a
// precomputed query vector. Entries without an embedding are skipped.
func (s *ExerciseStore) SearchByEmbedding(ctx context.Context, embedding []float32, limit int32) ([]ExerciseMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category, muscle_groups, equipment, aliases, created_at,
		       1 - (embedding <=> $1) AS score
		FROM exercises
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search exercises: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Count returns the catalog size.
func (s *ExerciseStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM exercises`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exercises: %w", err)
	}
	return n, nil
}

func scanMatches(rows pgx.Rows) ([]ExerciseMatch, error) {
	var matches []ExerciseMatch
	for rows.Next() {
		var m ExerciseMatch
		var equipment *string
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.MuscleGroups,
			&equipment, &m.Aliases, &m.CreatedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan exercise match: %w", err)
		}
		if equipment != nil {
			m.Equipment = *equipment
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercise matches: %w", err)
	}
	return matches, nil
}
