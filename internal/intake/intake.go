// Package intake defines the patient intake wizard: patient details, medical
// history and presenting symptoms, committed as one new patient record.
package intake

import (
	"context"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

const Name = "intake"

var Steps = []wizard.StepKey{StepDetails, StepMedicalHistory, StepSymptoms}

// PatientCreator persists a completed intake. *patient.Service implements it.
type PatientCreator interface {
	CreateFromIntake(ctx context.Context, rec *patient.IntakeRecord) (*patient.Patient, error)
}

// Definition returns the intake wizard committing through creator. onComplete may be nil.
func Definition(creator PatientCreator, onComplete func(wizard.Completion[Payload])) wizard.Definition[Payload] {
	return wizard.Definition[Payload]{
		Name:  Name,
		Steps: Steps,
		Commit: func(ctx context.Context, draft wizard.Draft[Payload]) (string, error) {
			rec, err := Record(draft)
			if err != nil {
				return "", err
			}
			p, err := creator.CreateFromIntake(ctx, rec)
			if err != nil {
				return "", err
			}
			return p.ID.String(), nil
		},
		OnComplete: onComplete,
		Clone:      clonePayload,
	}
}

// Record assembles a full intake draft into a patient intake record.
func Record(draft wizard.Draft[Payload]) (*patient.IntakeRecord, error) {
	details, ok := draft[StepDetails].(*Details)
	if !ok || details == nil {
		return nil, fmt.Errorf("intake draft: missing %s", StepDetails)
	}
	history, ok := draft[StepMedicalHistory].(*MedicalHistory)
	if !ok || history == nil {
		return nil, fmt.Errorf("intake draft: missing %s", StepMedicalHistory)
	}
	symptoms, ok := draft[StepSymptoms].(Symptoms)
	if !ok {
		return nil, fmt.Errorf("intake draft: missing %s", StepSymptoms)
	}

	p, err := details.ToPatient()
	if err != nil {
		return nil, err
	}
	return &patient.IntakeRecord{
		Patient:  p,
		History:  history.ToHistory(),
		Symptoms: symptoms.ToSymptoms(),
	}, nil
}
