package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

// Patient maps to the patient table.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	MRN                   string     `db:"mrn" json:"mrn"`
	Active                bool       `db:"active" json:"active"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	BirthDate             *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender                *string    `db:"gender" json:"gender,omitempty"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	City                  *string    `db:"city" json:"city,omitempty"`
	State                 *string    `db:"state" json:"state,omitempty"`
	ZipCode               *string    `db:"zip_code" json:"zip_code,omitempty"`
	InsuranceProvider     *string    `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsuranceNumber       *string    `db:"insurance_number" json:"insurance_number,omitempty"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	BloodType             *string    `db:"blood_type" json:"blood_type,omitempty"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last".
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age returns the age in whole years at the given time, or -1 when the birth date is unknown.
func (p *Patient) Age(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return age
}

func (p *Patient) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.BirthDate != nil && p.BirthDate.After(time.Now()) {
		return fmt.Errorf("birth_date cannot be in the future")
	}
	if p.BloodType != nil && !oneOf(*p.BloodType, bloodTypes...) {
		return fmt.Errorf("invalid blood_type %q", *p.BloodType)
	}
	return nil
}

var bloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

type ConditionStatus string

const (
	ConditionActive   ConditionStatus = "active"
	ConditionManaged  ConditionStatus = "managed"
	ConditionResolved ConditionStatus = "resolved"
)

// Condition maps to the patient_condition table.
type Condition struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	Name          string          `db:"name" json:"name"`
	DiagnosedDate *string         `db:"diagnosed_date" json:"diagnosed_date,omitempty"`
	Status        ConditionStatus `db:"status" json:"status"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
}

func (c *Condition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("condition name is required")
	}
	switch c.Status {
	case ConditionActive, ConditionManaged, ConditionResolved:
		return nil
	}
	return fmt.Errorf("condition %q: invalid status %q", c.Name, c.Status)
}

type AllergySeverity string

const (
	AllergyMild     AllergySeverity = "mild"
	AllergyModerate AllergySeverity = "moderate"
	AllergySevere   AllergySeverity = "severe"
)

// Allergy maps to the patient_allergy table.
type Allergy struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	Allergen      string          `db:"allergen" json:"allergen"`
	Severity      AllergySeverity `db:"severity" json:"severity"`
	Reaction      *string         `db:"reaction" json:"reaction,omitempty"`
	DiagnosedDate *string         `db:"diagnosed_date" json:"diagnosed_date,omitempty"`
}

func (a *Allergy) Validate() error {
	if strings.TrimSpace(a.Allergen) == "" {
		return fmt.Errorf("allergen is required")
	}
	switch a.Severity {
	case AllergyMild, AllergyModerate, AllergySevere:
		return nil
	}
	return fmt.Errorf("allergy %q: invalid severity %q", a.Allergen, a.Severity)
}

// Surgery maps to the patient_surgery table.
type Surgery struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Procedure string    `db:"procedure" json:"procedure"`
	Date      *string   `db:"date" json:"date,omitempty"`
	Hospital  *string   `db:"hospital" json:"hospital,omitempty"`
	Surgeon   *string   `db:"surgeon" json:"surgeon,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
}

func (s *Surgery) Validate() error {
	if strings.TrimSpace(s.Procedure) == "" {
		return fmt.Errorf("surgery procedure is required")
	}
	return nil
}

// FamilyHistory maps to the patient_family_history table, one row per patient.
type FamilyHistory struct {
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	HeartDisease bool      `db:"heart_disease" json:"heart_disease"`
	Diabetes     bool      `db:"diabetes" json:"diabetes"`
	Cancer       bool      `db:"cancer" json:"cancer"`
	Hypertension bool      `db:"hypertension" json:"hypertension"`
	Stroke       bool      `db:"stroke" json:"stroke"`
	MentalHealth bool      `db:"mental_health" json:"mental_health"`
	Other        *string   `db:"other" json:"other,omitempty"`
}

// Lifestyle maps to the patient_lifestyle table, one row per patient.
type Lifestyle struct {
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Smoking   *string   `db:"smoking" json:"smoking,omitempty"`
	Alcohol   *string   `db:"alcohol" json:"alcohol,omitempty"`
	Exercise  *string   `db:"exercise" json:"exercise,omitempty"`
	Diet      *string   `db:"diet" json:"diet,omitempty"`
}

func (l *Lifestyle) Validate() error {
	if l.Smoking != nil && !oneOf(*l.Smoking, "never", "former", "current") {
		return fmt.Errorf("invalid smoking %q", *l.Smoking)
	}
	if l.Alcohol != nil && !oneOf(*l.Alcohol, "none", "occasional", "moderate", "heavy") {
		return fmt.Errorf("invalid alcohol %q", *l.Alcohol)
	}
	if l.Exercise != nil && !oneOf(*l.Exercise, "none", "light", "moderate", "heavy") {
		return fmt.Errorf("invalid exercise %q", *l.Exercise)
	}
	return nil
}

// MedicalHistory aggregates the history tables of one patient.
type MedicalHistory struct {
	Conditions    []*Condition   `json:"conditions"`
	Allergies     []*Allergy     `json:"allergies"`
	Surgeries     []*Surgery     `json:"surgeries"`
	FamilyHistory *FamilyHistory `json:"family_history,omitempty"`
	Lifestyle     *Lifestyle     `json:"lifestyle,omitempty"`
}

func (h *MedicalHistory) Validate() error {
	for _, c := range h.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, a := range h.Allergies {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for _, s := range h.Surgeries {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if h.Lifestyle != nil {
		return h.Lifestyle.Validate()
	}
	return nil
}

const (
	MinSymptomSeverity = 1
	MaxSymptomSeverity = 10
)

// Symptom maps to the patient_symptom table.
type Symptom struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Name       string    `db:"name" json:"name"`
	Severity   int       `db:"severity" json:"severity"`
	Duration   *string   `db:"duration" json:"duration,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

func (s *Symptom) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("symptom name is required")
	}
	if s.Severity < MinSymptomSeverity || s.Severity > MaxSymptomSeverity {
		return fmt.Errorf("symptom %q: severity must be between %d and %d", s.Name, MinSymptomSeverity, MaxSymptomSeverity)
	}
	return nil
}

// IntakeRecord is everything captured by a completed intake: the patient, their
// medical history and presenting symptoms.
type IntakeRecord struct {
	Patient  *Patient
	History  *MedicalHistory
	Symptoms []*Symptom
}

func (r *IntakeRecord) Validate() error {
	if r.Patient == nil {
		return fmt.Errorf("patient details are required")
	}
	if err := r.Patient.Validate(); err != nil {
		return err
	}
	if r.History != nil {
		if err := r.History.Validate(); err != nil {
			return err
		}
	}
	for _, s := range r.Symptoms {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
