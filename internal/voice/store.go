package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore persists voice sessions. Status in the database is advisory:
// every read reconciles against the wall clock, and Touch refuses sessions
// whose deadline has passed even if the row still says active.
//
// SessionStore is safe for concurrent use by multiple goroutines.
type SessionStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time // injectable clock for tests
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(pool *pgxpool.Pool, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{pool: pool, logger: logger, now: time.Now}
}

// Start opens a new session for the user. Any prior open session is
// expired in the same transaction, so a user has at most one open session.
func (s *SessionStore) Start(ctx context.Context, userID uuid.UUID) (*Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE voice_sessions SET status = 'expired'
		WHERE user_id = $1 AND status <> 'expired'`, userID)
	if err != nil {
		return nil, fmt.Errorf("expire prior sessions: %w", err)
	}

	now := s.now().UTC()
	sess := &Session{
		UserID:       userID,
		Status:       StatusActive,
		StartedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(SessionTTL),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO voice_sessions (user_id, status, started_at, last_active_at, expires_at)
		VALUES ($1, 'active', $2, $2, $3)
		RETURNING id`,
		userID, now, sess.ExpiresAt,
	).Scan(&sess.ID)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("started voice session", "id", sess.ID, "user_id", userID, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// Get retrieves one session, owner-scoped, with clock-reconciled status.
func (s *SessionStore) Get(ctx context.Context, userID, id uuid.UUID) (*Session, error) {
	sess, err := scanSession(s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, started_at, last_active_at, expires_at, parse_count
		FROM voice_sessions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voice session %s: %w", id, ErrNoOpenSession)
		}
		return nil, fmt.Errorf("get voice session %s: %w", id, err)
	}

	sess.reconcile(s.now().UTC())
	return sess, nil
}

// Open returns the user's current open session, clock-reconciled.
// Returns ErrNoOpenSession when there is none or its deadline has passed.
func (s *SessionStore) Open(ctx context.Context, userID uuid.UUID) (*Session, error) {
	sess, err := scanSession(s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, started_at, last_active_at, expires_at, parse_count
		FROM voice_sessions
		WHERE user_id = $1 AND status <> 'expired'
		ORDER BY started_at DESC
		LIMIT 1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("get open voice session: %w", err)
	}

	sess.reconcile(s.now().UTC())
	if sess.Status == StatusExpired {
		return nil, ErrNoOpenSession
	}
	return sess, nil
}

// Touch records activity on a session: the TTL deadline moves out and an
// expiring session returns to active. countParse additionally increments
// the parse counter.
//
// Touching past the deadline persists the expired status and returns
// ErrSessionExpired; the stored status never contradicts the clock after a
// failed touch.
func (s *SessionStore) Touch(ctx context.Context, userID, id uuid.UUID, countParse bool) (*Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	// Row lock so concurrent touches and the sweeper serialize.
	sess, err := scanSession(tx.QueryRow(ctx, `
		SELECT id, user_id, status, started_at, last_active_at, expires_at, parse_count
		FROM voice_sessions WHERE id = $1 AND user_id = $2
		FOR UPDATE`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voice session %s: %w", id, ErrNoOpenSession)
		}
		return nil, fmt.Errorf("lock voice session: %w", err)
	}

	now := s.now().UTC()
	if sess.Status == StatusExpired || EffectiveStatus(now, sess.ExpiresAt) == StatusExpired {
		// Persist what the clock already decided, then fail the touch.
		if sess.Status != StatusExpired {
			if _, err := tx.Exec(ctx,
				`UPDATE voice_sessions SET status = 'expired' WHERE id = $1`, id); err != nil {
				return nil, fmt.Errorf("persist expiry: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit expiry: %w", err)
			}
		}
		return nil, fmt.Errorf("voice session %s: %w", id, ErrSessionExpired)
	}

	sess.LastActiveAt = now
	sess.ExpiresAt = now.Add(SessionTTL)
	sess.Status = StatusActive
	if countParse {
		sess.ParseCount++
	}

	_, err = tx.Exec(ctx, `
		UPDATE voice_sessions
		SET status = 'active', last_active_at = $2, expires_at = $3, parse_count = $4
		WHERE id = $1`,
		id, sess.LastActiveAt, sess.ExpiresAt, sess.ParseCount)
	if err != nil {
		return nil, fmt.Errorf("update voice session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return sess, nil
}

// ExpireDue persists the expired status for every open session whose
// deadline has passed. Returns the number of rows swept.
func (s *SessionStore) ExpireDue(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE voice_sessions SET status = 'expired'
		WHERE status <> 'expired' AND expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire due sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Status, &sess.StartedAt,
		&sess.LastActiveAt, &sess.ExpiresAt, &sess.ParseCount); err != nil {
		return nil, err
	}
	return &sess, nil
}
