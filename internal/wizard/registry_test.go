package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestRegistry_OpenGetClose(t *testing.T) {
	r, err := NewRegistry(threeStepDef((&recordingCommit{}).commit), time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	a, _ := r.Open()
	b, _ := r.Open()
	if a.ID() == b.ID() {
		t.Fatal("expected distinct session ids")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Len())
	}

	a.Advance(testPayload{"n": 1})
	if len(b.Snapshot().Draft) != 0 {
		t.Error("sessions must not share drafts")
	}

	got, err := r.Get(a.ID())
	if err != nil || got != a {
		t.Fatalf("Get: %v", err)
	}

	if err := r.Close(a.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.Get(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := r.Close(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on double close, got %v", err)
	}
	if !a.Snapshot().Closed {
		t.Error("expected closed controller")
	}
}

func TestRegistry_Steps(t *testing.T) {
	r, _ := NewRegistry(threeStepDef((&recordingCommit{}).commit), 0, zerolog.Nop())
	steps := r.Steps()
	steps[0] = "mutated"
	if r.Steps()[0] != "one" {
		t.Error("Steps must return a copy")
	}
	if r.Name() != "test" {
		t.Errorf("expected name test, got %s", r.Name())
	}
}

func TestRegistry_SweepEvictsIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	r, err := NewRegistry(threeStepDef((&recordingCommit{}).commit), 10*time.Minute, zerolog.Nop(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	stale, _ := r.Open()
	clock.Advance(8 * time.Minute)
	fresh, _ := r.Open()
	clock.Advance(3 * time.Minute)

	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, err := r.Get(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected stale session evicted")
	}
	if _, err := r.Get(fresh.ID()); err != nil {
		t.Errorf("expected fresh session kept: %v", err)
	}
}

func TestRegistry_SweepKeepsSubmitting(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	started := make(chan struct{})
	release := make(chan struct{})
	def := threeStepDef(func(ctx context.Context, d Draft[testPayload]) (string, error) {
		close(started)
		<-release
		return "id", nil
	})
	r, _ := NewRegistry(def, time.Minute, zerolog.Nop(), WithClock(clock.Now))
	c, _ := r.Open()
	advanceAll(t, c, 3)

	done := make(chan struct{})
	go func() {
		c.Finalize(context.Background())
		close(done)
	}()
	<-started
	clock.Advance(time.Hour)

	if n := r.Sweep(); n != 0 {
		t.Errorf("expected submitting session kept, evicted %d", n)
	}
	close(release)
	<-done
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r, _ := NewRegistry(threeStepDef((&recordingCommit{}).commit), 0, zerolog.Nop())
	r.Open()
	if n := r.Sweep(); n != 0 {
		t.Errorf("expected no eviction with zero ttl, got %d", n)
	}
}
