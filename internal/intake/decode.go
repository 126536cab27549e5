package intake

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

// Decode parses and validates the request body for an intake step. It is the step
// form behind the intake wizard: an invalid body never reaches the controller.
func Decode(key wizard.StepKey, body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, fmt.Errorf("%s: payload is required", key)
	}

	switch key {
	case StepDetails:
		var d Details
		if err := json.Unmarshal(body, &d); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		p, err := d.ToPatient()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &d, nil

	case StepMedicalHistory:
		var m MedicalHistory
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := m.ToHistory().Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &m, nil

	case StepSymptoms:
		var s Symptoms
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("%s: expected a list of symptoms: %w", key, err)
		}
		for _, sym := range s.ToSymptoms() {
			if err := sym.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown intake step %q", key)
}
