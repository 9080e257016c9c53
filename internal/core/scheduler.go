package core

// scheduler.go runs background maintenance for the service.
//
// The session reaper closes wizard sessions that have been idle longer than
// the configured TTL. It is long-running and stops when its context is
// cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are checked when the
// caller passes a non-positive interval.
const DefaultSweepInterval = time.Minute

// StartSessionReaper expires idle sessions every interval until ctx ends.
func (s *Service) StartSessionReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("session reaper started",
		"interval", interval.String(),
		"session_ttl", s.cfg.SessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			if n := s.ExpireSessions(); n > 0 {
				slog.Info("expired idle sessions",
					"expired", n,
					"remaining", s.SessionCount(),
				)
			}
		}
	}
}

// ExpireSessions closes every session idle for longer than the session TTL
// and returns how many were closed.
func (s *Service) ExpireSessions() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)
	stale := s.staleSessions(cutoff)
	if len(stale) == 0 {
		return 0
	}
	return s.dropIdle(stale, cutoff)
}

// staleSessions lists sessions last used before cutoff.
func (s *Service) staleSessions(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	return stale
}

// dropIdle deletes the listed sessions that are still idle. A session used
// since staleSessions ran is kept.
func (s *Service) dropIdle(ids []string, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, id := range ids {
		sess, ok := s.sessions[id]
		if !ok {
			continue
		}
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired
}
