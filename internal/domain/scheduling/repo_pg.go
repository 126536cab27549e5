package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

// -- Appointment --

type appointmentRepoPG struct {
	pool db.Querier
}

func NewAppointmentRepo(pool db.Querier) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, patient_id, practitioner, start_time, duration_minutes, reason, status, created_at, updated_at`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_appointment (id, patient_id, practitioner, start_time, duration_minutes, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.Practitioner, a.StartTime, a.DurationMinutes, a.Reason, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM patient_appointment WHERE patient_id = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) SetStatus(ctx context.Context, patientID, id uuid.UUID, status string) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND patient_id = $2 AND status = $4
		RETURNING `+apptCols, id, patientID, status, StatusScheduled))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	var current string
	err = r.conn(ctx).QueryRow(ctx, `SELECT status FROM patient_appointment WHERE id = $1 AND patient_id = $2`, id, patientID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("appointment is %s: %w", current, ErrNotScheduled)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.Practitioner, &a.StartTime, &a.DurationMinutes,
		&a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Visit --

type visitRepoPG struct {
	pool db.Querier
}

func NewVisitRepo(pool db.Querier) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const visitCols = `id, patient_id, appointment_id, visit_date, chief_complaint, symptoms, diagnosis, treatment, notes, follow_up, created_at`

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_visit (id, patient_id, appointment_id, visit_date, chief_complaint, symptoms, diagnosis, treatment, notes, follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		v.ID, v.PatientID, v.AppointmentID, v.VisitDate, v.ChiefComplaint, v.Symptoms,
		v.Diagnosis, v.Treatment, v.Notes, v.FollowUp,
	).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM patient_visit WHERE patient_id = $1 ORDER BY visit_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.AppointmentID, &v.VisitDate, &v.ChiefComplaint, &v.Symptoms,
			&v.Diagnosis, &v.Treatment, &v.Notes, &v.FollowUp, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, rows.Err()
}
