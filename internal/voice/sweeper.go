package voice

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval bounds how long a stored status may lag the clock.
const DefaultSweepInterval = time.Minute

// Sweeper periodically persists the expired status for sessions whose
// deadline has passed. Reads already reconcile against the clock, so the
// sweeper exists to keep the database listing-consistent, not for
// correctness of individual requests.
type Sweeper struct {
	store    *SessionStore
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. interval <= 0 uses DefaultSweepInterval.
func NewSweeper(store *SessionStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger.With("component", "session-sweeper"),
	}
}

// Run sweeps until ctx is canceled. Intended to be started as a goroutine
// owned by the server lifecycle.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.store.ExpireDue(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired voice sessions", "count", n)
			}
		}
	}
}
