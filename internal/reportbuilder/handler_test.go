package reportbuilder

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

func TestHandler_Preview(t *testing.T) {
	sessions, err := wizard.NewRegistry(Definition(&fakeCreator{}, nil), time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	h, e := NewHandler(sessions), echo.New()
	ctrl, _ := sessions.Open()

	preview := func(id string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		return rec, h.Preview(c)
	}

	var he *echo.HTTPError
	if _, err := preview(ctrl.ID()); !errors.As(err, &he) || he.Code != http.StatusConflict {
		t.Errorf("expected 409 before completion, got %v", err)
	}

	completeDraft(t, ctrl, uuid.NewString())
	rec, err := preview(ctrl.ID())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	var p Preview
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.TemplateName != "Follow-up Consultation" || p.Title != "Two week follow-up" {
		t.Errorf("unexpected preview %+v", p)
	}

	if _, err := preview("missing"); !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %v", err)
	}
}
