package auth

import (
	"context"
	"sync"
	"time"
)

// TokenSweeper garbage-collects stale session token rows on a fixed schedule
// derived from the session TTL. It bounds storage growth only: validity is
// already enforced by the embedded expiry and by the store presence check, so
// a missed or overlapping run is harmless.
//
// The age cutoff is computed once when the sweeper is built, not per run.
// Rows older than that fixed instant are deleted on every tick.
type TokenSweeper struct {
	store    TokenStore
	interval time.Duration
	cutoff   time.Time
	logger   Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewTokenSweeper builds a sweeper that runs every ttl and deletes rows
// issued before now-ttl.
func NewTokenSweeper(store TokenStore, ttl time.Duration, logger Logger) *TokenSweeper {
	if logger == nil {
		logger = defLogger{}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenSweeper{
		store:    store,
		interval: ttl,
		cutoff:   time.Now().Add(-ttl),
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic sweep. It returns immediately; the loop exits
// when ctx is cancelled or Stop is called.
func (s *TokenSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// SweepOnce deletes all rows older than the sweeper's cutoff. Deletes are
// idempotent; concurrent invocations are safe.
func (s *TokenSweeper) SweepOnce(ctx context.Context) {
	deleted, err := s.store.DeleteOlderThan(ctx, s.cutoff)
	if err != nil {
		s.logger.Error("Session token sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("Session token sweep removed stale rows", "deleted", deleted)
	}
}

// Stop terminates the sweep loop. Safe to call more than once.
func (s *TokenSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
}
