package intake

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

const (
	StepDetails        wizard.StepKey = "details"
	StepMedicalHistory wizard.StepKey = "medical-history"
	StepSymptoms       wizard.StepKey = "symptoms"
)

// Payload is the validated output of one intake step form.
type Payload interface {
	StepKey() wizard.StepKey
}

// Details is the patient demographics form.
type Details struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	DateOfBirth           string `json:"dateOfBirth,omitempty"`
	Gender                string `json:"gender,omitempty"`
	Email                 string `json:"email,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	Address               string `json:"address,omitempty"`
	City                  string `json:"city,omitempty"`
	State                 string `json:"state,omitempty"`
	ZipCode               string `json:"zipCode,omitempty"`
	InsuranceProvider     string `json:"insuranceProvider,omitempty"`
	InsuranceNumber       string `json:"insuranceNumber,omitempty"`
	EmergencyContactName  string `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone string `json:"emergencyContactPhone,omitempty"`
	BloodType             string `json:"bloodType,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

func (*Details) StepKey() wizard.StepKey { return StepDetails }

// ToPatient maps the form to a patient record. The date of birth accepts
// YYYY-MM-DD or RFC 3339.
func (d *Details) ToPatient() (*patient.Patient, error) {
	p := &patient.Patient{
		FirstName:             strings.TrimSpace(d.FirstName),
		LastName:              strings.TrimSpace(d.LastName),
		Gender:                optional(d.Gender),
		Email:                 optional(d.Email),
		Phone:                 optional(d.Phone),
		Address:               optional(d.Address),
		City:                  optional(d.City),
		State:                 optional(d.State),
		ZipCode:               optional(d.ZipCode),
		InsuranceProvider:     optional(d.InsuranceProvider),
		InsuranceNumber:       optional(d.InsuranceNumber),
		EmergencyContactName:  optional(d.EmergencyContactName),
		EmergencyContactPhone: optional(d.EmergencyContactPhone),
		BloodType:             optional(d.BloodType),
		Notes:                 optional(d.Notes),
	}
	if dob := strings.TrimSpace(d.DateOfBirth); dob != "" {
		t, err := parseDate(dob)
		if err != nil {
			return nil, fmt.Errorf("invalid dateOfBirth %q", d.DateOfBirth)
		}
		p.BirthDate = &t
	}
	return p, nil
}

type Condition struct {
	Name          string `json:"name"`
	DiagnosedDate string `json:"diagnosedDate,omitempty"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
}

type Allergy struct {
	Allergen      string `json:"allergen"`
	Severity      string `json:"severity"`
	Reaction      string `json:"reaction,omitempty"`
	DiagnosedDate string `json:"diagnosedDate,omitempty"`
}

type Surgery struct {
	Procedure string `json:"procedure"`
	Date      string `json:"date,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	Surgeon   string `json:"surgeon,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type FamilyHistory struct {
	HeartDisease bool   `json:"heartDisease,omitempty"`
	Diabetes     bool   `json:"diabetes,omitempty"`
	Cancer       bool   `json:"cancer,omitempty"`
	Hypertension bool   `json:"hypertension,omitempty"`
	Stroke       bool   `json:"stroke,omitempty"`
	MentalHealth bool   `json:"mentalHealth,omitempty"`
	Other        string `json:"other,omitempty"`
}

type Lifestyle struct {
	Smoking  string `json:"smoking,omitempty"`
	Alcohol  string `json:"alcohol,omitempty"`
	Exercise string `json:"exercise,omitempty"`
	Diet     string `json:"diet,omitempty"`
}

// MedicalHistory is the medical history form. Every section is optional.
type MedicalHistory struct {
	Conditions    []Condition    `json:"conditions,omitempty"`
	Allergies     []Allergy      `json:"allergies,omitempty"`
	Surgeries     []Surgery      `json:"surgeries,omitempty"`
	FamilyHistory *FamilyHistory `json:"familyHistory,omitempty"`
	Lifestyle     *Lifestyle     `json:"lifestyle,omitempty"`
}

func (*MedicalHistory) StepKey() wizard.StepKey { return StepMedicalHistory }

func (m *MedicalHistory) ToHistory() *patient.MedicalHistory {
	h := &patient.MedicalHistory{}
	for _, c := range m.Conditions {
		h.Conditions = append(h.Conditions, &patient.Condition{
			Name:          strings.TrimSpace(c.Name),
			DiagnosedDate: optional(c.DiagnosedDate),
			Status:        patient.ConditionStatus(c.Status),
			Notes:         optional(c.Notes),
		})
	}
	for _, a := range m.Allergies {
		h.Allergies = append(h.Allergies, &patient.Allergy{
			Allergen:      strings.TrimSpace(a.Allergen),
			Severity:      patient.AllergySeverity(a.Severity),
			Reaction:      optional(a.Reaction),
			DiagnosedDate: optional(a.DiagnosedDate),
		})
	}
	for _, s := range m.Surgeries {
		h.Surgeries = append(h.Surgeries, &patient.Surgery{
			Procedure: strings.TrimSpace(s.Procedure),
			Date:      optional(s.Date),
			Hospital:  optional(s.Hospital),
			Surgeon:   optional(s.Surgeon),
			Notes:     optional(s.Notes),
		})
	}
	if fh := m.FamilyHistory; fh != nil {
		h.FamilyHistory = &patient.FamilyHistory{
			HeartDisease: fh.HeartDisease,
			Diabetes:     fh.Diabetes,
			Cancer:       fh.Cancer,
			Hypertension: fh.Hypertension,
			Stroke:       fh.Stroke,
			MentalHealth: fh.MentalHealth,
			Other:        optional(fh.Other),
		}
	}
	if l := m.Lifestyle; l != nil {
		h.Lifestyle = &patient.Lifestyle{
			Smoking:  optional(l.Smoking),
			Alcohol:  optional(l.Alcohol),
			Exercise: optional(l.Exercise),
			Diet:     optional(l.Diet),
		}
	}
	return h
}

type Symptom struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Severity int    `json:"severity"`
	Duration string `json:"duration,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Symptoms is the symptoms form. An empty list is a valid submission.
type Symptoms []Symptom

func (Symptoms) StepKey() wizard.StepKey { return StepSymptoms }

func (s Symptoms) ToSymptoms() []*patient.Symptom {
	out := make([]*patient.Symptom, 0, len(s))
	for _, sym := range s {
		out = append(out, &patient.Symptom{
			Name:     strings.TrimSpace(sym.Name),
			Severity: sym.Severity,
			Duration: optional(sym.Duration),
			Notes:    optional(sym.Notes),
		})
	}
	return out
}

// clonePayload deep-copies a step payload so the wizard never shares one with its
// callers.
func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case *Details:
		if v == nil {
			return v
		}
		cp := *v
		return &cp
	case *MedicalHistory:
		if v == nil {
			return v
		}
		cp := MedicalHistory{
			Conditions: slices.Clone(v.Conditions),
			Allergies:  slices.Clone(v.Allergies),
			Surgeries:  slices.Clone(v.Surgeries),
		}
		if v.FamilyHistory != nil {
			fh := *v.FamilyHistory
			cp.FamilyHistory = &fh
		}
		if v.Lifestyle != nil {
			l := *v.Lifestyle
			cp.Lifestyle = &l
		}
		return &cp
	case Symptoms:
		return slices.Clone(v)
	}
	return p
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
