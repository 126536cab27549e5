package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// SetStatus moves one of the patient's scheduled appointments to status. It fails
	// with ErrNotScheduled when the appointment already left the scheduled state and
	// ErrAppointmentNotFound when the patient has no such appointment.
	SetStatus(ctx context.Context, patientID, id uuid.UUID, status string) (*Appointment, error)
}

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
}
