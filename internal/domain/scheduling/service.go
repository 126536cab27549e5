package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

// PatientFinder resolves the patient an appointment or visit is recorded against.
type PatientFinder interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	appointments AppointmentRepository
	visits       VisitRepository
	patients     PatientFinder
	pool         db.Pool
}

// NewService creates a Service. With a nil pool a visit and the appointment it
// completes are written without a surrounding transaction.
func NewService(appts AppointmentRepository, visits VisitRepository, patients PatientFinder, pool db.Pool) *Service {
	return &Service{appointments: appts, visits: visits, patients: patients, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func (s *Service) ensurePatient(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	_, err := s.patients.GetPatient(ctx, id)
	return err
}

// -- Appointment --

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if err := s.ensurePatient(ctx, a.PatientID); err != nil {
		return err
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if err := s.ensurePatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateAppointmentStatus closes a scheduled appointment as completed, cancelled or
// noshow. Closed appointments do not change again.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, patientID, id uuid.UUID, status string) (*Appointment, error) {
	if status == StatusScheduled || !validAppointmentStatuses[status] {
		return nil, fmt.Errorf("invalid appointment status: %s", status)
	}
	return s.appointments.SetStatus(ctx, patientID, id, status)
}

// -- Visit --

// RecordVisit stores a visit. A visit linked to an appointment completes that
// appointment in the same transaction.
func (s *Service) RecordVisit(ctx context.Context, v *Visit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if v.Symptoms == nil {
		v.Symptoms = []string{}
	}
	if err := s.ensurePatient(ctx, v.PatientID); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		if v.AppointmentID != nil {
			if _, err := s.appointments.SetStatus(ctx, v.PatientID, *v.AppointmentID, StatusCompleted); err != nil {
				return err
			}
		}
		return s.visits.Create(ctx, v)
	})
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	if err := s.ensurePatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.visits.ListByPatient(ctx, patientID, limit, offset)
}
