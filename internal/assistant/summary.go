package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/google/uuid"
)

// Summary is a short clinical overview of one patient.
type Summary struct {
	PatientID   uuid.UUID `json:"patient_id"`
	Name        string    `json:"name"`
	Age         *int      `json:"age,omitempty"`
	Conditions  []string  `json:"conditions"`
	Allergies   []string  `json:"allergies"`
	TopSymptoms []string  `json:"top_symptoms"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summarizer produces a Summary for a patient. Unknown patients yield
// patient.ErrNotFound.
type Summarizer interface {
	Summarize(ctx context.Context, patientID uuid.UUID) (*Summary, error)
}

// maxSummarySymptoms caps how many symptoms make it into a summary.
const maxSummarySymptoms = 3

// PatientSummarizer builds summaries from stored patient data.
type PatientSummarizer struct {
	patients patient.Reader
	now      func() time.Time
}

func NewPatientSummarizer(patients patient.Reader) *PatientSummarizer {
	return &PatientSummarizer{patients: patients, now: time.Now}
}

func (s *PatientSummarizer) Summarize(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	history, err := s.patients.GetMedicalHistory(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load medical history: %w", err)
	}
	symptoms, err := s.patients.ListSymptoms(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load symptoms: %w", err)
	}

	now := s.now()
	sum := &Summary{
		PatientID:   p.ID,
		Name:        p.FullName(),
		Conditions:  []string{},
		Allergies:   []string{},
		TopSymptoms: []string{},
		GeneratedAt: now,
	}
	if age := p.Age(now); age >= 0 {
		sum.Age = &age
	}
	for _, c := range history.Conditions {
		if c.Status == patient.ConditionResolved {
			continue
		}
		sum.Conditions = append(sum.Conditions, fmt.Sprintf("%s (%s)", c.Name, c.Status))
	}
	for _, a := range history.Allergies {
		sum.Allergies = append(sum.Allergies, fmt.Sprintf("%s (%s)", a.Allergen, a.Severity))
	}

	ranked := make([]*patient.Symptom, len(symptoms))
	copy(ranked, symptoms)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Severity > ranked[j].Severity })
	for i, sym := range ranked {
		if i == maxSummarySymptoms {
			break
		}
		sum.TopSymptoms = append(sum.TopSymptoms, fmt.Sprintf("%s (severity %d/%d)", sym.Name, sym.Severity, patient.MaxSymptomSeverity))
	}

	sum.Text = summaryText(sum)
	return sum, nil
}

func summaryText(s *Summary) string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Age != nil {
		fmt.Fprintf(&b, ", %d years old", *s.Age)
	}
	b.WriteString(".")
	writeList(&b, "Ongoing conditions", s.Conditions)
	writeList(&b, "Allergies", s.Allergies)
	writeList(&b, "Most severe symptoms", s.TopSymptoms)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	b.WriteString(" ")
	b.WriteString(label)
	b.WriteString(": ")
	if len(items) == 0 {
		b.WriteString("none recorded.")
		return
	}
	b.WriteString(strings.Join(items, ", "))
	b.WriteString(".")
}
