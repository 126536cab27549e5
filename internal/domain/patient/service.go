package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

// Reader is the read side of the patient record used by other components.
type Reader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetMedicalHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error)
	ListSymptoms(ctx context.Context, patientID uuid.UUID) ([]*Symptom, error)
}

// ChangeFunc is notified after a patient's clinical data changed.
type ChangeFunc func(ctx context.Context, patientID uuid.UUID)

type Service struct {
	patients Repository
	pool     db.Pool
	onChange []ChangeFunc
}

// NewService creates a Service. With a nil pool multi-row writes run without a
// surrounding transaction.
func NewService(patients Repository, pool db.Pool) *Service {
	return &Service{patients: patients, pool: pool}
}

// OnChange registers fn to run after a symptom is recorded for a patient.
func (s *Service) OnChange(fn ChangeFunc) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// NewMRN returns a medical record number of the form MRN-XXXXXXXX.
func NewMRN() string {
	return "MRN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateFromIntake stores a completed intake in one transaction and returns the new
// patient. Either every row is written or none is.
func (s *Service) CreateFromIntake(ctx context.Context, rec *IntakeRecord) (*Patient, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	p := rec.Patient
	if p.MRN == "" {
		p.MRN = NewMRN()
	}
	p.Active = true

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		if err := s.saveHistory(ctx, p.ID, rec.History); err != nil {
			return err
		}
		for _, sym := range rec.Symptoms {
			sym.PatientID = p.ID
			if err := s.patients.AddSymptom(ctx, sym); err != nil {
				return fmt.Errorf("add symptom %q: %w", sym.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create patient from intake: %w", err)
	}
	return p, nil
}

func (s *Service) saveHistory(ctx context.Context, patientID uuid.UUID, h *MedicalHistory) error {
	if h == nil {
		return nil
	}
	for _, c := range h.Conditions {
		c.PatientID = patientID
		if err := s.patients.AddCondition(ctx, c); err != nil {
			return fmt.Errorf("add condition %q: %w", c.Name, err)
		}
	}
	for _, a := range h.Allergies {
		a.PatientID = patientID
		if err := s.patients.AddAllergy(ctx, a); err != nil {
			return fmt.Errorf("add allergy %q: %w", a.Allergen, err)
		}
	}
	for _, sg := range h.Surgeries {
		sg.PatientID = patientID
		if err := s.patients.AddSurgery(ctx, sg); err != nil {
			return fmt.Errorf("add surgery %q: %w", sg.Procedure, err)
		}
	}
	if h.FamilyHistory != nil {
		h.FamilyHistory.PatientID = patientID
		if err := s.patients.SaveFamilyHistory(ctx, h.FamilyHistory); err != nil {
			return fmt.Errorf("save family history: %w", err)
		}
	}
	if h.Lifestyle != nil {
		h.Lifestyle.PatientID = patientID
		if err := s.patients.SaveLifestyle(ctx, h.Lifestyle); err != nil {
			return fmt.Errorf("save lifestyle: %w", err)
		}
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) GetMedicalHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.patients.GetMedicalHistory(ctx, patientID)
}

func (s *Service) ListSymptoms(ctx context.Context, patientID uuid.UUID) ([]*Symptom, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.patients.ListSymptoms(ctx, patientID)
}

func (s *Service) RecordSymptom(ctx context.Context, sym *Symptom) error {
	if sym.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if err := sym.Validate(); err != nil {
		return err
	}
	if _, err := s.patients.GetByID(ctx, sym.PatientID); err != nil {
		return err
	}
	if err := s.patients.AddSymptom(ctx, sym); err != nil {
		return err
	}
	for _, fn := range s.onChange {
		fn(ctx, sym.PatientID)
	}
	return nil
}
