package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func decodeTestPayload(key StepKey, body []byte) (testPayload, error) {
	var p testPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: payload is required", key)
	}
	return p, nil
}

func newTestWizardHandler(t *testing.T, rc *recordingCommit) (*Handler[testPayload], *Registry[testPayload], *echo.Echo) {
	t.Helper()
	r, err := NewRegistry(threeStepDef(rc.commit), time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewHandler(r, decodeTestPayload, time.Second, zerolog.Nop()), r, echo.New()
}

func sessionContext(e *echo.Echo, method, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) Snapshot[testPayload] {
	t.Helper()
	var snap Snapshot[testPayload]
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, rec.Body.String())
	}
	return snap
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_FullFlow(t *testing.T) {
	rc := &recordingCommit{id: "entity-9"}
	h, _, e := newTestWizardHandler(t, rc)

	c, rec := sessionContext(e, http.MethodPost, "", "")
	if err := h.Open(c); err != nil {
		t.Fatalf("open: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	id := decodeSnapshot(t, rec).SessionID

	for i := 1; i <= 3; i++ {
		c, rec = sessionContext(e, http.MethodPost, fmt.Sprintf(`{"n":%d}`, i), id)
		if err := h.Advance(c); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		snap := decodeSnapshot(t, rec)
		if snap.CurrentStep != Step(i+1) {
			t.Errorf("expected step %d, got %d", i+1, snap.CurrentStep)
		}
	}

	c, rec = sessionContext(e, http.MethodPost, "", id)
	if err := h.Finalize(c); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	snap := decodeSnapshot(t, rec)
	if snap.State != StateSucceeded || snap.EntityID != "entity-9" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	c, rec = sessionContext(e, http.MethodPost, "", id)
	if err := h.Restart(c); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap := decodeSnapshot(t, rec); snap.CurrentStep != 1 || len(snap.Draft) != 0 {
		t.Errorf("expected fresh session after restart, got %+v", snap)
	}

	c, rec = sessionContext(e, http.MethodDelete, "", id)
	if err := h.Close(c); err != nil {
		t.Fatalf("close: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = sessionContext(e, http.MethodGet, "", id)
	if code := httpStatus(t, h.Get(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 after close, got %d", code)
	}
}

func TestHandler_AdvanceRejectsInvalidPayload(t *testing.T) {
	h, r, e := newTestWizardHandler(t, &recordingCommit{})
	ctrl, _ := r.Open()

	c, _ := sessionContext(e, http.MethodPost, `not-json`, ctrl.ID())
	if code := httpStatus(t, h.Advance(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	if ctrl.Snapshot().CurrentStep != 1 {
		t.Error("invalid payload must not move the wizard")
	}
}

func TestHandler_FinalizeIncomplete(t *testing.T) {
	h, r, e := newTestWizardHandler(t, &recordingCommit{})
	ctrl, _ := r.Open()
	ctrl.Advance(testPayload{})

	c, _ := sessionContext(e, http.MethodPost, "", ctrl.ID())
	if code := httpStatus(t, h.Finalize(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_FinalizeCommitRejected(t *testing.T) {
	h, r, e := newTestWizardHandler(t, &recordingCommit{err: errors.New("insert failed")})
	ctrl, _ := r.Open()
	advanceAll(t, ctrl, 3)

	c, rec := sessionContext(e, http.MethodPost, "", ctrl.ID())
	if err := h.Finalize(c); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	snap := decodeSnapshot(t, rec)
	if snap.State != StateFailed || snap.Error != "insert failed" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(snap.Draft) != 3 {
		t.Errorf("expected draft intact, got %d", len(snap.Draft))
	}
}

func TestHandler_RetreatAndReset(t *testing.T) {
	h, r, e := newTestWizardHandler(t, &recordingCommit{})
	ctrl, _ := r.Open()
	advanceAll(t, ctrl, 2)

	c, rec := sessionContext(e, http.MethodPost, "", ctrl.ID())
	if err := h.Retreat(c); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if snap := decodeSnapshot(t, rec); snap.CurrentStep != 2 || len(snap.Draft) != 2 {
		t.Errorf("unexpected snapshot after retreat %+v", snap)
	}

	c, rec = sessionContext(e, http.MethodPost, "", ctrl.ID())
	if err := h.Reset(c); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap := decodeSnapshot(t, rec); snap.CurrentStep != 1 || len(snap.Draft) != 0 {
		t.Errorf("unexpected snapshot after reset %+v", snap)
	}
}

func TestHandler_ListSteps(t *testing.T) {
	h, _, e := newTestWizardHandler(t, &recordingCommit{})
	c, rec := sessionContext(e, http.MethodGet, "", "")
	if err := h.ListSteps(c); err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"steps":["one","two","three"]`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_UnknownSession(t *testing.T) {
	h, _, e := newTestWizardHandler(t, &recordingCommit{})
	c, _ := sessionContext(e, http.MethodPost, `{}`, "missing")
	if code := httpStatus(t, h.Advance(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_FinalizeConflictWhileDiscardedCommitRuns(t *testing.T) {
	release := make(chan struct{})
	def := threeStepDef(func(context.Context, Draft[testPayload]) (string, error) {
		<-release
		return "id", nil
	})
	r, err := NewRegistry(def, time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	h, e := NewHandler(r, decodeTestPayload, time.Second, zerolog.Nop()), echo.New()

	ctrl, _ := r.Open()
	advanceAll(t, ctrl, 3)
	done := make(chan struct{})
	go func() {
		ctrl.Finalize(context.Background())
		close(done)
	}()
	waitFor(t, func() bool { return ctrl.Snapshot().IsSubmitting })
	ctrl.Reset()
	advanceAll(t, ctrl, 3)

	c, _ := sessionContext(e, http.MethodPost, "", ctrl.ID())
	if code := httpStatus(t, h.Finalize(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}

	close(release)
	<-done
	c, rec := sessionContext(e, http.MethodPost, "", ctrl.ID())
	if err := h.Finalize(c); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if snap := decodeSnapshot(t, rec); snap.State != StateSucceeded || snap.EntityID != "id" {
		t.Errorf("expected the new draft committed, got %+v", snap)
	}
}
