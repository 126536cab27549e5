package report

import "strings"

var templates = []Template{
	{
		ID:          "annual-physical",
		Name:        "Annual Physical Examination",
		Description: "Comprehensive yearly health assessment",
		Category:    "examination",
		Sections:    []string{"Chief Complaint", "Vital Signs", "Physical Examination", "Assessment", "Plan"},
	},
	{
		ID:          "blood-work",
		Name:        "Blood Work Analysis",
		Description: "Interpretation of laboratory panel results",
		Category:    "laboratory",
		Sections:    []string{"Tests Ordered", "Results", "Reference Ranges", "Interpretation", "Recommendations"},
	},
	{
		ID:          "treatment-plan",
		Name:        "Treatment Plan",
		Description: "Goals, interventions and follow-up for a diagnosis",
		Category:    "planning",
		Sections:    []string{"Diagnosis", "Goals", "Interventions", "Medications", "Follow-up"},
	},
	{
		ID:          "medication-review",
		Name:        "Medication Review",
		Description: "Reconciliation of current prescriptions",
		Category:    "pharmacy",
		Sections:    []string{"Current Medications", "Interactions", "Adherence", "Changes"},
	},
	{
		ID:          "follow-up",
		Name:        "Follow-up Consultation",
		Description: "Progress note for a return visit",
		Category:    "consultation",
		Sections:    []string{"Interval History", "Current Symptoms", "Assessment", "Plan"},
	},
}

// Templates returns the report template catalogue.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateByID looks up a template in the catalogue.
func TemplateByID(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Skeleton renders the template sections as a plain-text starting body.
func (t Template) Skeleton() string {
	var b strings.Builder
	for i, s := range t.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.ToUpper(s))
		b.WriteString(":\n")
	}
	return b.String()
}
