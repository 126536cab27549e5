// Package wizard implements a linear, forward-biased multi-step form controller.
//
// A wizard walks a fixed sequence of steps, stores each step's validated payload in a
// Draft and, once every step has been satisfied, performs a single commit call against
// an external persistence collaborator. Concrete wizards (patient intake, report builder)
// supply a Definition: the step keys, the commit function and an optional completion
// callback.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Step is the 1-based ordinal of the current step. For an N-step wizard the value
// N+1 is the terminal Complete pseudo-step.
type Step int

// StepKey identifies a step within a Definition.
type StepKey string

// SubmissionState is the commit lifecycle of a wizard session.
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateSubmitting SubmissionState = "submitting"
	StateSucceeded  SubmissionState = "succeeded"
	StateFailed     SubmissionState = "failed"
)

var (
	ErrLocked          = errors.New("wizard: navigation is locked")
	ErrMissingPayload  = errors.New("wizard: payload is required")
	ErrIncompleteDraft = errors.New("wizard: draft is incomplete")
	ErrClosed          = errors.New("wizard: session is closed")
	ErrDiscarded       = errors.New("wizard: commit result discarded")
	ErrSessionNotFound = errors.New("wizard: session not found")
	ErrStepMismatch    = errors.New("wizard: payload is for a different step")
)

// CommitError wraps a rejection returned by the persistence collaborator.
type CommitError struct {
	Wizard string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s commit rejected: %v", e.Wizard, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Draft maps step keys to the payload captured for that step.
type Draft[P any] map[StepKey]P

// clone copies the draft. Payloads are copied with fn when it is set, so holders of a
// snapshot cannot reach the controller's payloads through pointer payloads.
func (d Draft[P]) clone(fn func(P) P) Draft[P] {
	out := make(Draft[P], len(d))
	for k, v := range d {
		if fn != nil {
			v = fn(v)
		}
		out[k] = v
	}
	return out
}

// CommitFunc persists a complete draft and returns the created entity identifier.
type CommitFunc[P any] func(ctx context.Context, draft Draft[P]) (string, error)

// Completion is handed to the completion callback after a successful commit.
type Completion[P any] struct {
	SessionID string
	EntityID  string
	Draft     Draft[P]
}

// Definition describes one kind of wizard. Clone deep-copies a payload; it is
// required for payload types that share memory (pointers, slices, maps) and may be
// nil for plain values.
type Definition[P any] struct {
	Name       string
	Steps      []StepKey
	Commit     CommitFunc[P]
	OnComplete func(Completion[P])
	Clone      func(P) P
}

func (d Definition[P]) validate() error {
	if d.Name == "" {
		return fmt.Errorf("wizard definition: name is required")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("wizard definition %s: at least one step is required", d.Name)
	}
	seen := make(map[StepKey]bool, len(d.Steps))
	for _, k := range d.Steps {
		if k == "" {
			return fmt.Errorf("wizard definition %s: empty step key", d.Name)
		}
		if seen[k] {
			return fmt.Errorf("wizard definition %s: duplicate step key %q", d.Name, k)
		}
		seen[k] = true
	}
	if d.Commit == nil {
		return fmt.Errorf("wizard definition %s: commit function is required", d.Name)
	}
	return nil
}

// Snapshot is an immutable view of a wizard session handed to the presentation layer.
type Snapshot[P any] struct {
	SessionID       string          `json:"session_id"`
	Wizard          string          `json:"wizard"`
	CurrentStep     Step            `json:"current_step"`
	StepKey         StepKey         `json:"step_key,omitempty"`
	TotalSteps      int             `json:"total_steps"`
	ProgressPercent int             `json:"progress_percent"`
	IsSubmitting    bool            `json:"is_submitting"`
	IsComplete      bool            `json:"is_complete"`
	State           SubmissionState `json:"state"`
	Error           string          `json:"error,omitempty"`
	EntityID        string          `json:"entity_id,omitempty"`
	Closed          bool            `json:"closed,omitempty"`
	Draft           Draft[P]        `json:"draft"`
}

// Progress returns the completion percentage for step out of total steps.
func Progress(step Step, total int) int {
	if total <= 0 || step <= 0 {
		return 0
	}
	pct := int(step) * 100 / total
	if pct > 100 {
		return 100
	}
	return pct
}

// payloadAbsent reports whether no payload was supplied: a nil interface or nil pointer.
// A nil slice or map is an empty submission and counts as present.
func payloadAbsent[P any](v P) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
