package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobtalk/internal/application"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds the live intake sessions. Sessions idle for longer than the
// TTL are dropped by Sweep.
type Registry struct {
	pipeline *application.Pipeline
	ttl      time.Duration
	logger   *slog.Logger
	onChange func(n int)

	mu       sync.Mutex
	sessions map[string]*application.Session
}

func NewRegistry(pipeline *application.Pipeline, ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		pipeline: pipeline,
		ttl:      ttl,
		logger:   logger,
		onChange: func(int) {},
		sessions: make(map[string]*application.Session),
	}
}

// OnChange registers a callback that receives the session count after every
// create or sweep.
func (r *Registry) OnChange(fn func(n int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Registry) Create() *application.Session {
	id := uuid.NewString()
	s := application.NewSession(id, r.pipeline, r.logger)

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	notify := r.onChange
	r.mu.Unlock()

	notify(n)
	r.logger.Info("session created", "session", id, "active", n)
	return s
}

func (r *Registry) Get(id string) (*application.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.Touch()
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle since before now-ttl. Sessions with an intake
// in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) > r.ttl && !s.Busy() {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	notify := r.onChange
	r.mu.Unlock()

	if removed > 0 {
		notify(n)
		r.logger.Info("expired idle sessions", "removed", removed, "active", n)
	}
	return removed
}

// RunJanitor sweeps idle sessions and stale rate limit buckets until ctx ends.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration, limiter *RateLimiter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
			if limiter != nil {
				limiter.Cleanup(now)
			}
		}
	}
}
