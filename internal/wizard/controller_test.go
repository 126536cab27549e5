package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testPayload map[string]interface{}

type recordingCommit struct {
	mu     sync.Mutex
	calls  int32
	drafts []Draft[testPayload]
	err    error
	id     string
}

func (r *recordingCommit) commit(_ context.Context, d Draft[testPayload]) (string, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, d)
	if r.err != nil {
		return "", r.err
	}
	return r.id, nil
}

func (r *recordingCommit) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func threeStepDef(commit CommitFunc[testPayload]) Definition[testPayload] {
	return Definition[testPayload]{
		Name:   "test",
		Steps:  []StepKey{"one", "two", "three"},
		Commit: commit,
	}
}

func newTestController(t *testing.T, def Definition[testPayload]) *Controller[testPayload] {
	t.Helper()
	c, err := NewController("s-1", def)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func advanceAll(t *testing.T, c *Controller[testPayload], n int) Snapshot[testPayload] {
	t.Helper()
	var snap Snapshot[testPayload]
	for i := 1; i <= n; i++ {
		var err error
		snap, err = c.Advance(testPayload{"n": i})
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	return snap
}

func TestController_AdvanceToComplete(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d_steps", n), func(t *testing.T) {
			steps := make([]StepKey, n)
			for i := range steps {
				steps[i] = StepKey(fmt.Sprintf("s%d", i+1))
			}
			c, err := NewController("s", Definition[testPayload]{
				Name:   "n",
				Steps:  steps,
				Commit: func(context.Context, Draft[testPayload]) (string, error) { return "x", nil },
			})
			if err != nil {
				t.Fatalf("NewController: %v", err)
			}

			first := c.Snapshot()
			if first.CurrentStep != 1 || first.StepKey != "s1" {
				t.Fatalf("expected step 1 (s1), got %d (%s)", first.CurrentStep, first.StepKey)
			}

			snap := advanceAll(t, c, n)
			if snap.CurrentStep != Step(n+1) {
				t.Errorf("expected step %d, got %d", n+1, snap.CurrentStep)
			}
			if !snap.IsComplete {
				t.Error("expected IsComplete")
			}
			if snap.ProgressPercent != 100 {
				t.Errorf("expected progress 100, got %d", snap.ProgressPercent)
			}
			if snap.StepKey != "" {
				t.Errorf("expected no step key at complete, got %q", snap.StepKey)
			}
			if len(snap.Draft) != n {
				t.Errorf("expected %d draft entries, got %d", n, len(snap.Draft))
			}
		})
	}
}

func TestController_AdvanceSaturatesAtComplete(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{id: "x"}).commit))
	advanceAll(t, c, 3)

	snap, err := c.Advance(testPayload{"extra": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CurrentStep != 4 {
		t.Errorf("expected step to stay 4, got %d", snap.CurrentStep)
	}
	if len(snap.Draft) != 3 {
		t.Errorf("expected draft size 3, got %d", len(snap.Draft))
	}
}

func TestController_ProgressPerStep(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	want := []int{33, 66, 100, 100}
	if got := c.Snapshot().ProgressPercent; got != want[0] {
		t.Errorf("step 1: expected %d, got %d", want[0], got)
	}
	for i := 1; i < len(want); i++ {
		snap, _ := c.Advance(testPayload{})
		if snap.ProgressPercent != want[i] {
			t.Errorf("step %d: expected %d, got %d", i+1, want[i], snap.ProgressPercent)
		}
	}
}

type stepPayload interface{ kind() string }

type formPayload struct{ Name string }

func (*formPayload) kind() string { return "form" }

type listPayload []string

func (listPayload) kind() string { return "list" }

func cloneStepPayload(p stepPayload) stepPayload {
	switch v := p.(type) {
	case *formPayload:
		cp := *v
		return &cp
	case listPayload:
		return append(listPayload(nil), v...)
	}
	return p
}

func formDef(commit CommitFunc[stepPayload]) Definition[stepPayload] {
	return Definition[stepPayload]{
		Name:   "form",
		Steps:  []StepKey{"form", "list"},
		Commit: commit,
		Clone:  cloneStepPayload,
	}
}

func TestController_MissingPayload(t *testing.T) {
	c, err := NewController("s-1", formDef(func(context.Context, Draft[stepPayload]) (string, error) { return "x", nil }))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	for name, p := range map[string]stepPayload{
		"nil interface": nil,
		"nil pointer":   (*formPayload)(nil),
	} {
		snap, err := c.Advance(p)
		if !errors.Is(err, ErrMissingPayload) {
			t.Fatalf("%s: expected ErrMissingPayload, got %v", name, err)
		}
		if snap.CurrentStep != 1 {
			t.Errorf("%s: expected step 1, got %d", name, snap.CurrentStep)
		}
	}
}

func TestController_NilListIsAnEmptySubmission(t *testing.T) {
	c, err := NewController("s-1", formDef(func(context.Context, Draft[stepPayload]) (string, error) { return "x", nil }))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if _, err := c.Advance(&formPayload{Name: "Ann"}); err != nil {
		t.Fatalf("advance form: %v", err)
	}
	snap, err := c.Advance(listPayload(nil))
	if err != nil {
		t.Fatalf("a nil list is a supplied payload, got %v", err)
	}
	if !snap.IsComplete {
		t.Errorf("expected complete, got step %d", snap.CurrentStep)
	}

	var m testPayload
	mc := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	if _, err := mc.Advance(m); err != nil {
		t.Errorf("a nil map is a supplied payload, got %v", err)
	}
}

func TestController_RetreatOverwritesPayload(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	advanceAll(t, c, 2)

	snap, err := c.Retreat()
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if snap.CurrentStep != 2 {
		t.Fatalf("expected step 2, got %d", snap.CurrentStep)
	}
	if snap.Draft["two"]["n"] != 2 {
		t.Errorf("expected retreat to keep payload for step two, got %v", snap.Draft["two"])
	}

	snap, err = c.Advance(testPayload{"n": "edited"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(snap.Draft) != 2 {
		t.Errorf("expected 2 draft entries, got %d", len(snap.Draft))
	}
	if snap.Draft["two"]["n"] != "edited" {
		t.Errorf("expected overwritten payload, got %v", snap.Draft["two"])
	}
	if snap.Draft["one"]["n"] != 1 {
		t.Errorf("expected step one untouched, got %v", snap.Draft["one"])
	}
}

func TestController_RetreatFloor(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	for i := 0; i < 3; i++ {
		snap, err := c.Retreat()
		if err != nil {
			t.Fatalf("retreat: %v", err)
		}
		if snap.CurrentStep != 1 {
			t.Errorf("expected floor at step 1, got %d", snap.CurrentStep)
		}
	}
}

func TestController_SnapshotIsImmutable(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	snap, _ := c.Advance(testPayload{"n": 1})
	delete(snap.Draft, "one")
	snap.Draft["bogus"] = testPayload{}

	again := c.Snapshot()
	if _, ok := again.Draft["one"]; !ok {
		t.Error("mutating a snapshot must not change the controller draft")
	}
	if _, ok := again.Draft["bogus"]; ok {
		t.Error("unexpected key leaked into draft")
	}
}

func TestController_SnapshotPayloadsAreCopies(t *testing.T) {
	var committed Draft[stepPayload]
	release := make(chan struct{})
	c, err := NewController("s-1", formDef(func(_ context.Context, d Draft[stepPayload]) (string, error) {
		<-release
		committed = d
		return "x", nil
	}))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	submitted := &formPayload{Name: "Ann"}
	snap, _ := c.Advance(submitted)
	submitted.Name = "changed by caller"
	snap.Draft["form"].(*formPayload).Name = "changed by snapshot"
	c.Draft()["form"].(*formPayload).Name = "changed by draft copy"

	if got := c.Snapshot().Draft["form"].(*formPayload).Name; got != "Ann" {
		t.Fatalf("expected stored payload untouched, got %q", got)
	}

	snap, _ = c.Advance(listPayload{"cough"})
	snap.Draft["list"].(listPayload)[0] = "changed"

	done := make(chan struct{})
	go func() {
		c.Finalize(context.Background())
		close(done)
	}()
	waitFor(t, func() bool { return c.Snapshot().IsSubmitting })
	c.Snapshot().Draft["form"].(*formPayload).Name = "changed while submitting"
	close(release)
	<-done

	if got := committed["form"].(*formPayload).Name; got != "Ann" {
		t.Errorf("expected committed name Ann, got %q", got)
	}
	if got := committed["list"].(listPayload); len(got) != 1 || got[0] != "cough" {
		t.Errorf("expected committed list [cough], got %v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestController_FinalizeIncomplete(t *testing.T) {
	rc := &recordingCommit{id: "x"}
	c := newTestController(t, threeStepDef(rc.commit))
	advanceAll(t, c, 2)

	snap, err := c.Finalize(context.Background())
	if !errors.Is(err, ErrIncompleteDraft) {
		t.Fatalf("expected ErrIncompleteDraft, got %v", err)
	}
	if snap.State != StateIdle {
		t.Errorf("expected idle, got %s", snap.State)
	}
	if rc.calls != 0 {
		t.Errorf("commit must not be called, got %d calls", rc.calls)
	}
}

func TestController_FinalizeRequiresCompleteStep(t *testing.T) {
	rc := &recordingCommit{id: "x"}
	c := newTestController(t, threeStepDef(rc.commit))
	advanceAll(t, c, 3)
	if _, err := c.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}

	_, err := c.Finalize(context.Background())
	if !errors.Is(err, ErrIncompleteDraft) {
		t.Fatalf("expected ErrIncompleteDraft while re-editing, got %v", err)
	}
}

func TestController_FinalizeSuccess(t *testing.T) {
	rc := &recordingCommit{id: "entity-1"}
	var completions []Completion[testPayload]
	def := threeStepDef(rc.commit)
	def.OnComplete = func(cp Completion[testPayload]) { completions = append(completions, cp) }
	c := newTestController(t, def)
	advanceAll(t, c, 3)

	snap, err := c.Finalize(context.Background())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if snap.State != StateSucceeded {
		t.Errorf("expected succeeded, got %s", snap.State)
	}
	if snap.EntityID != "entity-1" {
		t.Errorf("expected entity-1, got %s", snap.EntityID)
	}
	if len(completions) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(completions))
	}
	if completions[0].EntityID != "entity-1" || len(completions[0].Draft) != 3 {
		t.Errorf("unexpected completion %+v", completions[0])
	}

	// Terminal until reset: navigation locked, finalize is a no-op.
	if _, err := c.Advance(testPayload{}); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on advance, got %v", err)
	}
	if _, err := c.Retreat(); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on retreat, got %v", err)
	}
	if _, err := c.Finalize(context.Background()); err != nil {
		t.Errorf("expected no-op finalize, got %v", err)
	}
	if rc.calls != 1 {
		t.Errorf("expected exactly 1 commit call, got %d", rc.calls)
	}
}

func TestController_FinalizeNoOpWhileSubmitting(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	def := threeStepDef(func(ctx context.Context, d Draft[testPayload]) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "id-1", nil
	})
	c := newTestController(t, def)
	advanceAll(t, c, 3)

	done := make(chan error, 1)
	go func() {
		_, err := c.Finalize(context.Background())
		done <- err
	}()
	<-started

	snap := c.Snapshot()
	if !snap.IsSubmitting || snap.State != StateSubmitting {
		t.Fatalf("expected submitting snapshot, got %+v", snap)
	}

	snap, err := c.Finalize(context.Background())
	if err != nil {
		t.Fatalf("re-entrant finalize: %v", err)
	}
	if !snap.IsSubmitting {
		t.Error("expected re-entrant finalize to report submitting")
	}
	if _, err := c.Advance(testPayload{}); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on advance while submitting, got %v", err)
	}
	if _, err := c.Retreat(); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on retreat while submitting, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 commit call, got %d", got)
	}
	if c.Snapshot().State != StateSucceeded {
		t.Errorf("expected succeeded, got %s", c.Snapshot().State)
	}
}

func TestController_FailedThenRetry(t *testing.T) {
	rc := &recordingCommit{id: "entity-2", err: errors.New("database unavailable")}
	c := newTestController(t, threeStepDef(rc.commit))
	advanceAll(t, c, 3)
	before := c.Draft()

	snap, err := c.Finalize(context.Background())
	var commitErr *CommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("expected CommitError, got %v", err)
	}
	if snap.State != StateFailed {
		t.Errorf("expected failed, got %s", snap.State)
	}
	if snap.Error != "database unavailable" {
		t.Errorf("expected error message, got %q", snap.Error)
	}
	if len(snap.Draft) != len(before) {
		t.Errorf("expected draft intact, got %d entries", len(snap.Draft))
	}

	rc.setErr(nil)
	snap, err = c.Finalize(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if snap.State != StateSucceeded || snap.Error != "" {
		t.Errorf("expected succeeded with no error, got %s %q", snap.State, snap.Error)
	}
	if rc.calls != 2 {
		t.Errorf("expected 2 commit calls, got %d", rc.calls)
	}
	if len(rc.drafts[1]) != 3 {
		t.Errorf("expected retry to commit full draft, got %d entries", len(rc.drafts[1]))
	}
}

func TestController_RetreatAfterFailureClearsState(t *testing.T) {
	rc := &recordingCommit{err: errors.New("rejected")}
	c := newTestController(t, threeStepDef(rc.commit))
	advanceAll(t, c, 3)
	c.Finalize(context.Background())

	snap, err := c.Retreat()
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if snap.State != StateIdle || snap.Error != "" {
		t.Errorf("expected idle without error, got %s %q", snap.State, snap.Error)
	}
	if snap.CurrentStep != 3 {
		t.Errorf("expected step 3, got %d", snap.CurrentStep)
	}
	if len(snap.Draft) != 3 {
		t.Errorf("expected draft retained, got %d", len(snap.Draft))
	}
}

func TestController_ResetFromAnyState(t *testing.T) {
	cases := map[string]func(c *Controller[testPayload], rc *recordingCommit){
		"mid-flow": func(c *Controller[testPayload], _ *recordingCommit) {
			c.Advance(testPayload{})
		},
		"failed": func(c *Controller[testPayload], rc *recordingCommit) {
			rc.setErr(errors.New("boom"))
			for i := 0; i < 3; i++ {
				c.Advance(testPayload{})
			}
			c.Finalize(context.Background())
		},
		"succeeded": func(c *Controller[testPayload], _ *recordingCommit) {
			for i := 0; i < 3; i++ {
				c.Advance(testPayload{})
			}
			c.Finalize(context.Background())
		},
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			rc := &recordingCommit{id: "x"}
			c := newTestController(t, threeStepDef(rc.commit))
			prepare(c, rc)

			snap := c.Reset()
			if snap.CurrentStep != 1 {
				t.Errorf("expected step 1, got %d", snap.CurrentStep)
			}
			if len(snap.Draft) != 0 {
				t.Errorf("expected empty draft, got %d", len(snap.Draft))
			}
			if snap.State != StateIdle || snap.Error != "" || snap.EntityID != "" {
				t.Errorf("expected clean idle snapshot, got %+v", snap)
			}
		})
	}
}

func TestController_CloseWhileSubmittingDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var completed int32
	def := threeStepDef(func(ctx context.Context, d Draft[testPayload]) (string, error) {
		close(started)
		<-release
		return "late-id", nil
	})
	def.OnComplete = func(Completion[testPayload]) { atomic.AddInt32(&completed, 1) }
	c := newTestController(t, def)
	advanceAll(t, c, 3)

	done := make(chan error, 1)
	go func() {
		_, err := c.Finalize(context.Background())
		done <- err
	}()
	<-started
	c.Close()
	close(release)

	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	if atomic.LoadInt32(&completed) != 0 {
		t.Error("completion callback must not run for a discarded commit")
	}
	snap := c.Snapshot()
	if !snap.Closed || snap.EntityID != "" || len(snap.Draft) != 0 {
		t.Errorf("unexpected snapshot after close: %+v", snap)
	}
	if _, err := c.Advance(testPayload{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestController_ResetWhileSubmittingBlocksSecondCommit(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls int32
	def := threeStepDef(func(ctx context.Context, d Draft[testPayload]) (string, error) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
		return "id", nil
	})
	c := newTestController(t, def)
	advanceAll(t, c, 3)

	done := make(chan error, 1)
	go func() {
		_, err := c.Finalize(context.Background())
		done <- err
	}()
	<-started

	c.Reset()
	advanceAll(t, c, 3)
	snap, err := c.Finalize(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked while the discarded commit runs, got %v", err)
	}
	if snap.State != StateIdle || snap.IsSubmitting {
		t.Errorf("expected idle snapshot, got %+v", snap)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 commit call in flight at a time, got %d", got)
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}

	snap, err = c.Finalize(context.Background())
	if err != nil {
		t.Fatalf("retry after the discarded commit returned: %v", err)
	}
	if snap.State != StateSucceeded || snap.EntityID != "id" {
		t.Errorf("expected the new draft committed, got %+v", snap)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 commit calls, got %d", got)
	}
}

func TestController_AdvanceAtMismatch(t *testing.T) {
	c := newTestController(t, threeStepDef((&recordingCommit{}).commit))
	if _, err := c.AdvanceAt("two", testPayload{}); !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}
	snap, err := c.AdvanceAt("one", testPayload{})
	if err != nil {
		t.Fatalf("AdvanceAt: %v", err)
	}
	if snap.CurrentStep != 2 {
		t.Errorf("expected step 2, got %d", snap.CurrentStep)
	}
}

type countingObserver struct {
	mu       sync.Mutex
	advanced []StepKey
	commits  []SubmissionState
}

func (o *countingObserver) StepAdvanced(_ string, key StepKey) {
	o.mu.Lock()
	o.advanced = append(o.advanced, key)
	o.mu.Unlock()
}

func (o *countingObserver) CommitFinished(_ string, state SubmissionState, _ time.Duration) {
	o.mu.Lock()
	o.commits = append(o.commits, state)
	o.mu.Unlock()
}

func TestController_Observer(t *testing.T) {
	obs := &countingObserver{}
	rc := &recordingCommit{id: "x"}
	c, err := NewController("s", threeStepDef(rc.commit), WithObserver(obs))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	advanceAll(t, c, 3)
	c.Finalize(context.Background())

	if len(obs.advanced) != 3 || obs.advanced[2] != "three" {
		t.Errorf("unexpected advanced events %v", obs.advanced)
	}
	if len(obs.commits) != 1 || obs.commits[0] != StateSucceeded {
		t.Errorf("unexpected commit events %v", obs.commits)
	}
}

func TestDefinition_Validate(t *testing.T) {
	commit := func(context.Context, Draft[testPayload]) (string, error) { return "", nil }
	tests := []struct {
		name string
		def  Definition[testPayload]
	}{
		{"no name", Definition[testPayload]{Steps: []StepKey{"a"}, Commit: commit}},
		{"no steps", Definition[testPayload]{Name: "x", Commit: commit}},
		{"empty key", Definition[testPayload]{Name: "x", Steps: []StepKey{""}, Commit: commit}},
		{"duplicate key", Definition[testPayload]{Name: "x", Steps: []StepKey{"a", "a"}, Commit: commit}},
		{"no commit", Definition[testPayload]{Name: "x", Steps: []StepKey{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController("s", tt.def); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		step  Step
		total int
		want  int
	}{
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{4, 3, 100},
		{1, 2, 50},
		{0, 3, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := Progress(tt.step, tt.total); got != tt.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", tt.step, tt.total, got, tt.want)
		}
	}
}
