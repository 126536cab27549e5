package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry holds the open sessions of one wizard kind. Each session owns an
// independent Controller; no state is shared across sessions.
type Registry[P any] struct {
	mu       sync.RWMutex
	def      Definition[P]
	sessions map[string]*Controller[P]
	ttl      time.Duration
	opts     []Option
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRegistry creates a registry for def. Sessions idle for longer than ttl are
// removed by Sweep; a zero ttl disables eviction.
func NewRegistry[P any](def Definition[P], ttl time.Duration, logger zerolog.Logger, opts ...Option) (*Registry[P], error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	o := controllerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[P]{
		def:      def,
		sessions: make(map[string]*Controller[P]),
		ttl:      ttl,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger.With().Str("wizard", def.Name).Logger(),
		now:      o.now,
	}, nil
}

// Name returns the wizard kind served by this registry.
func (r *Registry[P]) Name() string { return r.def.Name }

// Steps returns the step keys of the wizard in order.
func (r *Registry[P]) Steps() []StepKey {
	out := make([]StepKey, len(r.def.Steps))
	copy(out, r.def.Steps)
	return out
}

// Open starts a new session at step 1.
func (r *Registry[P]) Open() (*Controller[P], error) {
	c, err := NewController(uuid.NewString(), r.def, r.opts...)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[c.ID()] = c
	r.mu.Unlock()
	r.logger.Debug().Str("session_id", c.ID()).Msg("wizard session opened")
	return c, nil
}

// Get looks up an open session.
func (r *Registry[P]) Get(id string) (*Controller[P], error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Close closes the session and forgets it. A commit still in flight completes in the
// background and its result is discarded.
func (r *Registry[P]) Close(id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	return nil
}

// Len returns the number of open sessions.
func (r *Registry[P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the registry TTL and returns how many
// were removed. Sessions with a commit in flight are kept.
func (r *Registry[P]) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Controller[P]
	for id, c := range r.sessions {
		if c.Snapshot().IsSubmitting {
			continue
		}
		if c.IdleSince().Before(cutoff) {
			expired = append(expired, c)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		r.logger.Info().Int("expired", len(expired)).Msg("wizard sessions evicted")
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *Registry[P]) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
