package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Observer receives wizard lifecycle events. Implementations must be safe for
// concurrent use.
type Observer interface {
	StepAdvanced(wizard string, key StepKey)
	CommitFinished(wizard string, state SubmissionState, elapsed time.Duration)
}

// Controller drives one wizard session. All methods are safe for concurrent use; the
// lock is not held while the commit call is in flight so snapshots stay available.
type Controller[P any] struct {
	mu sync.Mutex

	id       string
	def      Definition[P]
	step     Step
	draft    Draft[P]
	state    SubmissionState
	lastErr  string
	entityID string
	closed   bool
	inFlight bool

	// gen is bumped by Reset and Close so a commit that outlives them is discarded.
	gen uint64

	touched  time.Time
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// WithLogger sets the logger used for transition and commit events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *controllerOptions) { o.logger = l }
}

// WithObserver registers an observer for step and commit events.
func WithObserver(obs Observer) Option {
	return func(o *controllerOptions) { o.observer = obs }
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *controllerOptions) { o.now = now }
}

// NewController opens a session for def at step 1 with an empty draft.
func NewController[P any](id string, def Definition[P], opts ...Option) (*Controller[P], error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	o := controllerOptions{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller[P]{
		id:       id,
		def:      def,
		step:     1,
		draft:    make(Draft[P]),
		state:    StateIdle,
		logger:   o.logger.With().Str("wizard", def.Name).Str("session_id", id).Logger(),
		observer: o.observer,
		now:      o.now,
	}
	c.touched = c.now()
	return c, nil
}

// ID returns the session identifier.
func (c *Controller[P]) ID() string { return c.id }

func (c *Controller[P]) total() int { return len(c.def.Steps) }

func (c *Controller[P]) complete() Step { return Step(c.total() + 1) }

func (c *Controller[P]) navigationLocked() bool {
	return c.state == StateSubmitting || c.state == StateSucceeded
}

// Advance stores payload under the current step and moves to the next step.
// At the Complete pseudo-step it does nothing.
func (c *Controller[P]) Advance(payload P) (Snapshot[P], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceLocked(payload)
}

// AdvanceAt is Advance guarded by the step the payload was decoded for. It fails with
// ErrStepMismatch when another request moved the session in the meantime.
func (c *Controller[P]) AdvanceAt(key StepKey, payload P) (Snapshot[P], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed && int(c.step) <= c.total() && c.def.Steps[c.step-1] != key {
		return c.snapshotLocked(), fmt.Errorf("payload for %q at step %q: %w", key, c.def.Steps[c.step-1], ErrStepMismatch)
	}
	return c.advanceLocked(payload)
}

func (c *Controller[P]) advanceLocked(payload P) (Snapshot[P], error) {
	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.navigationLocked() {
		return c.snapshotLocked(), fmt.Errorf("advance while %s: %w", c.state, ErrLocked)
	}
	if payloadAbsent(payload) {
		return c.snapshotLocked(), ErrMissingPayload
	}
	c.touched = c.now()
	if c.step >= c.complete() {
		return c.snapshotLocked(), nil
	}

	key := c.def.Steps[c.step-1]
	if c.def.Clone != nil {
		payload = c.def.Clone(payload)
	}
	c.draft[key] = payload
	c.step++
	c.logger.Debug().Str("step_key", string(key)).Int("step", int(c.step)).Msg("wizard advanced")
	if c.observer != nil {
		c.observer.StepAdvanced(c.def.Name, key)
	}
	return c.snapshotLocked(), nil
}

// Retreat moves back one step, never below step 1. Stored payloads are kept.
// Leaving the Complete step after a failed commit returns the session to idle.
func (c *Controller[P]) Retreat() (Snapshot[P], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.navigationLocked() {
		return c.snapshotLocked(), fmt.Errorf("retreat while %s: %w", c.state, ErrLocked)
	}
	c.touched = c.now()
	if c.step > 1 {
		c.step--
	}
	if c.state == StateFailed {
		c.state = StateIdle
		c.lastErr = ""
	}
	c.logger.Debug().Int("step", int(c.step)).Msg("wizard retreated")
	return c.snapshotLocked(), nil
}

// Reset returns the session to step 1 with an empty draft, from any state. A commit
// in flight keeps running but its result is discarded.
func (c *Controller[P]) Reset() Snapshot[P] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.closed = false
	c.logger.Debug().Msg("wizard reset")
	return c.snapshotLocked()
}

// Restart is the "start another" continuation offered after a successful commit.
func (c *Controller[P]) Restart() Snapshot[P] {
	return c.Reset()
}

// Close discards the draft. Later operations fail with ErrClosed until Reset.
func (c *Controller[P]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	submitting := c.state == StateSubmitting
	c.resetLocked()
	c.closed = true
	c.logger.Debug().Bool("commit_in_flight", submitting).Msg("wizard closed")
}

func (c *Controller[P]) resetLocked() {
	c.gen++
	c.step = 1
	c.draft = make(Draft[P])
	c.state = StateIdle
	c.lastErr = ""
	c.entityID = ""
	c.touched = c.now()
}

// Finalize commits the draft. It requires the Complete step and a payload for every
// step. While this draft's commit is in flight, or after it succeeded, Finalize is a
// no-op that returns the current snapshot without calling the commit function again.
// A commit orphaned by Reset still occupies the session: Finalize fails with ErrLocked
// until it returns, and the caller retries.
func (c *Controller[P]) Finalize(ctx context.Context) (Snapshot[P], error) {
	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if c.inFlight && c.state != StateSubmitting {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("finalize while a discarded commit is still running: %w", ErrLocked)
	}
	if c.inFlight || c.state == StateSucceeded {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	if missing := c.missingLocked(); c.step != c.complete() || len(missing) > 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("finalize at step %d, missing %v: %w", snap.CurrentStep, missing, ErrIncompleteDraft)
	}

	c.state = StateSubmitting
	c.inFlight = true
	c.lastErr = ""
	c.touched = c.now()
	gen := c.gen
	draft := c.draft.clone(c.def.Clone)
	c.mu.Unlock()

	c.logger.Info().Msg("wizard commit started")
	start := c.now()
	entityID, commitErr := c.def.Commit(ctx, draft)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	c.inFlight = false
	if c.gen != gen {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn().Err(commitErr).Str("entity_id", entityID).Msg("wizard commit finished after reset or close, result discarded")
		return snap, ErrDiscarded
	}
	c.touched = c.now()
	if commitErr != nil {
		c.state = StateFailed
		c.lastErr = commitErr.Error()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Error().Err(commitErr).Dur("elapsed", elapsed).Msg("wizard commit failed")
		if c.observer != nil {
			c.observer.CommitFinished(c.def.Name, StateFailed, elapsed)
		}
		return snap, &CommitError{Wizard: c.def.Name, Err: commitErr}
	}
	c.state = StateSucceeded
	c.entityID = entityID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info().Str("entity_id", entityID).Dur("elapsed", elapsed).Msg("wizard commit succeeded")
	if c.observer != nil {
		c.observer.CommitFinished(c.def.Name, StateSucceeded, elapsed)
	}
	if c.def.OnComplete != nil {
		c.def.OnComplete(Completion[P]{SessionID: c.id, EntityID: entityID, Draft: draft})
	}
	return snap, nil
}

// Snapshot returns the current state of the session.
func (c *Controller[P]) Snapshot() Snapshot[P] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Draft returns a copy of the payloads captured so far.
func (c *Controller[P]) Draft() Draft[P] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.clone(c.def.Clone)
}

// IdleSince reports when the session last changed state.
func (c *Controller[P]) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

func (c *Controller[P]) missingLocked() []StepKey {
	var missing []StepKey
	for _, k := range c.def.Steps {
		if _, ok := c.draft[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func (c *Controller[P]) snapshotLocked() Snapshot[P] {
	snap := Snapshot[P]{
		SessionID:       c.id,
		Wizard:          c.def.Name,
		CurrentStep:     c.step,
		TotalSteps:      c.total(),
		ProgressPercent: Progress(c.step, c.total()),
		IsSubmitting:    c.state == StateSubmitting,
		IsComplete:      c.step == c.complete(),
		State:           c.state,
		Error:           c.lastErr,
		EntityID:        c.entityID,
		Closed:          c.closed,
		Draft:           c.draft.clone(c.def.Clone),
	}
	if int(c.step) <= c.total() {
		snap.StepKey = c.def.Steps[c.step-1]
	}
	return snap
}
