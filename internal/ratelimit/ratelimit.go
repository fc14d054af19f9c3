// Package ratelimit implements per-user sliding-window admission control with a cooldown block.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/metrics"
)

// Policy configures the limiter
type Policy struct {
	MaxRequests int
	Window      time.Duration
	Cooldown    time.Duration
}

// DefaultPolicy allows 5 requests per 5s window and blocks for 3s after that
var DefaultPolicy = Policy{
	MaxRequests: 5,
	Window:      5 * time.Second,
	Cooldown:    3 * time.Second,
}

// ttl is how long an idle state must be kept; after it the state is equivalent to a fresh one
func (p Policy) ttl() time.Duration {
	return p.Window + p.Cooldown
}

// State is the per-identity limiter record
type State struct {
	Count        int
	WindowStart  time.Time
	Blocked      bool
	BlockedUntil time.Time
}

// Apply runs one request through the state machine and returns the next state and
// whether the request is limited. exists is false for an identity seen for the first time.
func Apply(s State, exists bool, now time.Time, p Policy) (State, bool) {
	fresh := State{Count: 1, WindowStart: now}

	switch {
	case !exists:
		return fresh, false
	case s.Blocked && now.Before(s.BlockedUntil):
		return s, true
	case s.Blocked:
		return fresh, false
	case now.Sub(s.WindowStart) > p.Window:
		return fresh, false
	}

	s.Count++
	if s.Count > p.MaxRequests {
		s.Blocked = true
		s.BlockedUntil = now.Add(p.Cooldown)
		return s, true
	}
	return s, false
}

// Store holds limiter states. Check must apply the transition atomically per id.
type Store interface {
	Check(ctx context.Context, id string, now time.Time, p Policy) (limited bool, err error)
}

// Limiter gates user requests
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, policy Policy, log *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		policy: policy,
		now:    time.Now,
		log:    log.With("component", "ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRateLimited reports whether the request of id must be rejected.
// Store errors fail open.
func (l *Limiter) IsRateLimited(ctx context.Context, id string) bool {
	limited, err := l.store.Check(ctx, id, l.now(), l.policy)
	if err != nil {
		l.log.Warn("Rate limiter store failed, admitting request", "user_id", id, "error", err)
		return false
	}
	if limited {
		metrics.RateLimitedTotal.Inc()
		l.log.Debug("Request rate limited", "user_id", id)
	}
	return limited
}
