package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Service struct {
	reports Repository
}

func NewService(reports Repository) *Service {
	return &Service{reports: reports}
}

// Create stores a new draft medical report. The author is taken from the request
// identity when not already set.
func (s *Service) Create(ctx context.Context, r *Report) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if _, ok := TemplateByID(r.TemplateID); !ok {
		return fmt.Errorf("unknown template %q", r.TemplateID)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("content is required")
	}
	r.Status = StatusDraft
	if r.Type == "" {
		r.Type = TypeMedical
	}
	if r.CreatedBy == nil {
		if uid := auth.UserIDFromContext(ctx); uid != "" {
			r.CreatedBy = &uid
		}
	}
	return s.reports.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	return s.reports.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}

// Finalize marks a draft report final. Final reports are immutable.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.MarkFinal(ctx, id)
}
