// Package voice implements voice workout logging: the session TTL state
// machine and the transcript parse pipeline.
package voice

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a voice session.
type Status string

const (
	// StatusActive means the session can accept parses.
	StatusActive Status = "active"
	// StatusExpiring means the session is inside the warning window before
	// the TTL deadline. It still accepts parses; clients should prompt the
	// user to keep the session alive.
	StatusExpiring Status = "expiring"
	// StatusExpired is terminal. An expired session never comes back; a new
	// parse opens a fresh session instead.
	StatusExpired Status = "expired"
)

const (
	// SessionTTL is how long a session lives after its last activity.
	SessionTTL = 30 * time.Minute

	// WarningWindow is the final stretch before the deadline during which a
	// session reports StatusExpiring.
	WarningWindow = 5 * time.Minute
)

// ErrSessionExpired is returned when touching a session whose deadline has
// passed. The stored row may still say active; the clock wins.
var ErrSessionExpired = errors.New("voice session expired")

// ErrNoOpenSession is returned when the user has no active or expiring
// session.
var ErrNoOpenSession = errors.New("no open voice session")

// Session is one voice logging session.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Status       Status    `json:"status"`
	StartedAt    time.Time `json:"startedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ParseCount   int32     `json:"parseCount"`
}

// EffectiveStatus computes the status a session should report at the given
// instant. This is the single source of truth for the state machine: the
// stored status column is only a materialization of this function that the
// sweeper keeps from drifting.
func EffectiveStatus(now, expiresAt time.Time) Status {
	switch {
	case !now.Before(expiresAt):
		return StatusExpired
	case now.After(expiresAt.Add(-WarningWindow)):
		return StatusExpiring
	default:
		return StatusActive
	}
}

// Remaining returns the time left before expiry, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// reconcile overwrites the stored status with the clock-derived one, except
// that a persisted expired status is sticky: the row may have been swept
// between our read and now, and expired never resurrects.
func (s *Session) reconcile(now time.Time) {
	if s.Status == StatusExpired {
		return
	}
	s.Status = EffectiveStatus(now, s.ExpiresAt)
}
