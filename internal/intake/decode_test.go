package intake

import (
	"strings"
	"testing"

	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		key     wizard.StepKey
		body    string
		wantErr string
	}{
		{"details", StepDetails, `{"firstName":"Ann","lastName":"Lee","dateOfBirth":"1979-05-15","bloodType":"AB-"}`, ""},
		{"details rfc3339 dob", StepDetails, `{"firstName":"Ann","lastName":"Lee","dateOfBirth":"1979-05-15T00:00:00Z"}`, ""},
		{"details missing last name", StepDetails, `{"firstName":"Ann"}`, "last_name"},
		{"details bad dob", StepDetails, `{"firstName":"Ann","lastName":"Lee","dateOfBirth":"15/05/1979"}`, "dateOfBirth"},
		{"details bad blood type", StepDetails, `{"firstName":"Ann","lastName":"Lee","bloodType":"C+"}`, "blood_type"},
		{"details not json", StepDetails, `firstName=Ann`, "details"},
		{"history empty", StepMedicalHistory, `{}`, ""},
		{"history full", StepMedicalHistory, `{"conditions":[{"name":"Asthma","status":"managed"}],"allergies":[{"allergen":"Latex","severity":"severe","reaction":"Rash"}],"surgeries":[{"procedure":"Appendectomy"}],"familyHistory":{"diabetes":true},"lifestyle":{"smoking":"former","exercise":"heavy"}}`, ""},
		{"history bad status", StepMedicalHistory, `{"conditions":[{"name":"Asthma","status":"cured"}]}`, "invalid status"},
		{"history bad severity", StepMedicalHistory, `{"allergies":[{"allergen":"Latex","severity":"deadly"}]}`, "invalid severity"},
		{"history bad exercise", StepMedicalHistory, `{"lifestyle":{"exercise":"extreme"}}`, "invalid exercise"},
		{"symptoms empty", StepSymptoms, `[]`, ""},
		{"symptoms", StepSymptoms, `[{"id":"s1","name":"Headache","severity":7,"duration":"2 days"}]`, ""},
		{"symptoms severity range", StepSymptoms, `[{"name":"Headache","severity":0}]`, "severity"},
		{"symptoms object", StepSymptoms, `{"name":"Headache"}`, "expected a list"},
		{"empty body", StepDetails, ``, "payload is required"},
		{"null body", StepSymptoms, `null`, "payload is required"},
		{"unknown step", "billing", `{}`, "unknown intake step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.key, []byte(tt.body))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.StepKey() != tt.key {
					t.Errorf("expected payload for %s, got %s", tt.key, p.StepKey())
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecode_EmptySymptomsIsNotMissing(t *testing.T) {
	p, err := Decode(StepSymptoms, []byte(`[]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := p.(Symptoms)
	if !ok || s == nil {
		t.Fatalf("expected non-nil empty Symptoms, got %#v", p)
	}
}
