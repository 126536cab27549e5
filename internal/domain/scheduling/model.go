package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotScheduled        = errors.New("appointment is no longer scheduled")
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "noshow"

	DefaultDurationMinutes = 30
)

var validAppointmentStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

// Appointment maps to the patient_appointment table.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	Practitioner    string    `db:"practitioner" json:"practitioner"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EndTime is StartTime plus the booked duration.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

func (a *Appointment) Validate() error {
	if strings.TrimSpace(a.Practitioner) == "" {
		return fmt.Errorf("practitioner is required")
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	if a.DurationMinutes < 0 || a.DurationMinutes > 8*60 {
		return fmt.Errorf("duration_minutes must be between 0 and 480")
	}
	if a.Status != "" && !validAppointmentStatuses[a.Status] {
		return fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	return nil
}

// Visit maps to the patient_visit table: what happened when the patient was seen.
type Visit struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	VisitDate      time.Time  `db:"visit_date" json:"visit_date"`
	ChiefComplaint string     `db:"chief_complaint" json:"chief_complaint"`
	Symptoms       []string   `db:"symptoms" json:"symptoms"`
	Diagnosis      string     `db:"diagnosis" json:"diagnosis"`
	Treatment      string     `db:"treatment" json:"treatment"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	FollowUp       *time.Time `db:"follow_up" json:"follow_up,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

func (v *Visit) Validate() error {
	if v.VisitDate.IsZero() {
		return fmt.Errorf("visit_date is required")
	}
	if strings.TrimSpace(v.ChiefComplaint) == "" {
		return fmt.Errorf("chief_complaint is required")
	}
	for _, s := range v.Symptoms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("symptoms cannot contain blank entries")
		}
	}
	if v.FollowUp != nil && v.FollowUp.Before(v.VisitDate) {
		return fmt.Errorf("follow_up cannot be before visit_date")
	}
	return nil
}
