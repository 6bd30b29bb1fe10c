package browse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// SessionsOption configures [Sessions].
type SessionsOption func(*Sessions)

// WithSessionTTL sets how long an untouched session is kept. Default: 30m.
func WithSessionTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSweepInterval sets how often [Sessions.Start] evicts idle sessions.
// Default: 1m.
func WithSweepInterval(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSessionClock overrides the clock used for idle tracking.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

type session struct {
	nav      *Navigator
	lastSeen time.Time
}

// Sessions keeps one [Navigator] per client so that "latest navigation" is
// tracked per client rather than globally. Idle sessions are evicted.
//
// All methods are safe for concurrent use.
type Sessions struct {
	cfg      Config
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	done     chan struct{}
	stopOnce sync.Once
}

// NewSessions returns an empty registry whose navigators share cfg.
func NewSessions(cfg Config, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		cfg:      cfg,
		ttl:      defaultSessionTTL,
		interval: defaultSweepInterval,
		now:      time.Now,
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewID returns a fresh session identifier.
func NewID() string { return uuid.NewString() }

// ParseID returns the canonical form of a client-supplied session ID. ok is
// false unless id is a UUID, so clients cannot mint arbitrary session keys.
func ParseID(id string) (canonical string, ok bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// Get returns the navigator for id, creating it when id is unknown, and
// marks the session as used.
func (s *Sessions) Get(id string) *Navigator {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		e = &session{nav: NewNavigator(s.cfg)}
		s.sessions[id] = e
	}
	e.lastSeen = s.now()
	return e.nav
}

// Lookup returns the navigator for id without creating one.
func (s *Sessions) Lookup(id string) (*Navigator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.nav, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Start sweeps periodically in a background goroutine until [Sessions.Stop]
// is called or ctx is cancelled.
func (s *Sessions) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop halts the sweep loop. Safe to call multiple times.
func (s *Sessions) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Sessions) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("evicted idle browse sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}
