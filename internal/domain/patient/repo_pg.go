package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type repoPG struct {
	pool db.Querier
}

func NewRepo(pool db.Querier) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, mrn, active, first_name, last_name, birth_date, gender, email, phone,
	address, city, state, zip_code, insurance_provider, insurance_number,
	emergency_contact_name, emergency_contact_phone, blood_type, notes,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, mrn, active, first_name, last_name, birth_date, gender, email, phone,
			address, city, state, zip_code, insurance_provider, insurance_number,
			emergency_contact_name, emergency_contact_phone, blood_type, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING created_at, updated_at`,
		p.ID, p.MRN, p.Active, p.FirstName, p.LastName, p.BirthDate, p.Gender, p.Email, p.Phone,
		p.Address, p.City, p.State, p.ZipCode, p.InsuranceProvider, p.InsuranceNumber,
		p.EmergencyContactName, p.EmergencyContactPhone, p.BloodType, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

// Medical history

func (r *repoPG) AddCondition(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_condition (id, patient_id, name, diagnosed_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PatientID, c.Name, c.DiagnosedDate, string(c.Status), c.Notes)
	return err
}

func (r *repoPG) AddAllergy(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_allergy (id, patient_id, allergen, severity, reaction, diagnosed_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.PatientID, a.Allergen, string(a.Severity), a.Reaction, a.DiagnosedDate)
	return err
}

func (r *repoPG) AddSurgery(ctx context.Context, s *Surgery) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_surgery (id, patient_id, procedure, date, hospital, surgeon, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.PatientID, s.Procedure, s.Date, s.Hospital, s.Surgeon, s.Notes)
	return err
}

func (r *repoPG) SaveFamilyHistory(ctx context.Context, fh *FamilyHistory) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_family_history (patient_id, heart_disease, diabetes, cancer, hypertension, stroke, mental_health, other)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			heart_disease = EXCLUDED.heart_disease, diabetes = EXCLUDED.diabetes, cancer = EXCLUDED.cancer,
			hypertension = EXCLUDED.hypertension, stroke = EXCLUDED.stroke,
			mental_health = EXCLUDED.mental_health, other = EXCLUDED.other`,
		fh.PatientID, fh.HeartDisease, fh.Diabetes, fh.Cancer, fh.Hypertension, fh.Stroke, fh.MentalHealth, fh.Other)
	return err
}

func (r *repoPG) SaveLifestyle(ctx context.Context, l *Lifestyle) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_lifestyle (patient_id, smoking, alcohol, exercise, diet)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_id) DO UPDATE SET
			smoking = EXCLUDED.smoking, alcohol = EXCLUDED.alcohol,
			exercise = EXCLUDED.exercise, diet = EXCLUDED.diet`,
		l.PatientID, l.Smoking, l.Alcohol, l.Exercise, l.Diet)
	return err
}

func (r *repoPG) GetMedicalHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error) {
	h := &MedicalHistory{}
	q := r.conn(ctx)

	rows, err := q.Query(ctx, `SELECT id, patient_id, name, diagnosed_date, status, notes
		FROM patient_condition WHERE patient_id = $1 ORDER BY name`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	for rows.Next() {
		var c Condition
		var status string
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Name, &c.DiagnosedDate, &status, &c.Notes); err != nil {
			rows.Close()
			return nil, err
		}
		c.Status = ConditionStatus(status)
		h.Conditions = append(h.Conditions, &c)
	}
	rows.Close()

	rows, err = q.Query(ctx, `SELECT id, patient_id, allergen, severity, reaction, diagnosed_date
		FROM patient_allergy WHERE patient_id = $1 ORDER BY allergen`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query allergies: %w", err)
	}
	for rows.Next() {
		var a Allergy
		var severity string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Allergen, &severity, &a.Reaction, &a.DiagnosedDate); err != nil {
			rows.Close()
			return nil, err
		}
		a.Severity = AllergySeverity(severity)
		h.Allergies = append(h.Allergies, &a)
	}
	rows.Close()

	rows, err = q.Query(ctx, `SELECT id, patient_id, procedure, date, hospital, surgeon, notes
		FROM patient_surgery WHERE patient_id = $1 ORDER BY date`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query surgeries: %w", err)
	}
	for rows.Next() {
		var s Surgery
		if err := rows.Scan(&s.ID, &s.PatientID, &s.Procedure, &s.Date, &s.Hospital, &s.Surgeon, &s.Notes); err != nil {
			rows.Close()
			return nil, err
		}
		h.Surgeries = append(h.Surgeries, &s)
	}
	rows.Close()

	var fh FamilyHistory
	err = q.QueryRow(ctx, `SELECT patient_id, heart_disease, diabetes, cancer, hypertension, stroke, mental_health, other
		FROM patient_family_history WHERE patient_id = $1`, patientID).
		Scan(&fh.PatientID, &fh.HeartDisease, &fh.Diabetes, &fh.Cancer, &fh.Hypertension, &fh.Stroke, &fh.MentalHealth, &fh.Other)
	switch {
	case err == nil:
		h.FamilyHistory = &fh
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("query family history: %w", err)
	}

	var l Lifestyle
	err = q.QueryRow(ctx, `SELECT patient_id, smoking, alcohol, exercise, diet
		FROM patient_lifestyle WHERE patient_id = $1`, patientID).
		Scan(&l.PatientID, &l.Smoking, &l.Alcohol, &l.Exercise, &l.Diet)
	switch {
	case err == nil:
		h.Lifestyle = &l
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("query lifestyle: %w", err)
	}

	return h, nil
}

// Symptoms

func (r *repoPG) AddSymptom(ctx context.Context, s *Symptom) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_symptom (id, patient_id, name, severity, duration, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING recorded_at`,
		s.ID, s.PatientID, s.Name, s.Severity, s.Duration, s.Notes,
	).Scan(&s.RecordedAt)
}

func (r *repoPG) ListSymptoms(ctx context.Context, patientID uuid.UUID) ([]*Symptom, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, patient_id, name, severity, duration, notes, recorded_at
		FROM patient_symptom WHERE patient_id = $1 ORDER BY severity DESC, name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symptoms []*Symptom
	for rows.Next() {
		var s Symptom
		if err := rows.Scan(&s.ID, &s.PatientID, &s.Name, &s.Severity, &s.Duration, &s.Notes, &s.RecordedAt); err != nil {
			return nil, err
		}
		symptoms = append(symptoms, &s)
	}
	return symptoms, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.MRN, &p.Active, &p.FirstName, &p.LastName, &p.BirthDate, &p.Gender, &p.Email, &p.Phone,
		&p.Address, &p.City, &p.State, &p.ZipCode, &p.InsuranceProvider, &p.InsuranceNumber,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.BloodType, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
