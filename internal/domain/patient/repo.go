package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)

	// Medical history
	AddCondition(ctx context.Context, c *Condition) error
	AddAllergy(ctx context.Context, a *Allergy) error
	AddSurgery(ctx context.Context, s *Surgery) error
	SaveFamilyHistory(ctx context.Context, fh *FamilyHistory) error
	SaveLifestyle(ctx context.Context, l *Lifestyle) error
	GetMedicalHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error)

	// Symptoms
	AddSymptom(ctx context.Context, s *Symptom) error
	ListSymptoms(ctx context.Context, patientID uuid.UUID) ([]*Symptom, error)
}
