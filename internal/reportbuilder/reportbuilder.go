// Package reportbuilder defines the report authoring wizard. The user picks a
// template for a patient, writes the content, reviews the preview on the Complete
// step and saves, which stores a draft medical report.
package reportbuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/report"
	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

const (
	Name = "report"

	StepTemplate wizard.StepKey = "template"
	StepContent  wizard.StepKey = "content"
)

var Steps = []wizard.StepKey{StepTemplate, StepContent}

type Payload interface {
	StepKey() wizard.StepKey
}

// TemplateChoice selects the patient and the report template.
type TemplateChoice struct {
	PatientID  string `json:"patientId"`
	TemplateID string `json:"templateId"`
}

func (*TemplateChoice) StepKey() wizard.StepKey { return StepTemplate }

// Content is the edited report body.
type Content struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (*Content) StepKey() wizard.StepKey { return StepContent }

// ReportCreator persists a report. *report.Service implements it.
type ReportCreator interface {
	Create(ctx context.Context, r *report.Report) error
}

// Decode parses and validates the request body for a report builder step.
func Decode(key wizard.StepKey, body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, fmt.Errorf("%s: payload is required", key)
	}

	switch key {
	case StepTemplate:
		var tc TemplateChoice
		if err := json.Unmarshal(body, &tc); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, err := uuid.Parse(tc.PatientID); err != nil {
			return nil, fmt.Errorf("%s: invalid patientId %q", key, tc.PatientID)
		}
		if _, ok := report.TemplateByID(tc.TemplateID); !ok {
			return nil, fmt.Errorf("%s: unknown template %q", key, tc.TemplateID)
		}
		return &tc, nil

	case StepContent:
		var c Content
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if strings.TrimSpace(c.Title) == "" {
			return nil, fmt.Errorf("%s: title is required", key)
		}
		if strings.TrimSpace(c.Content) == "" {
			return nil, fmt.Errorf("%s: content is required", key)
		}
		return &c, nil
	}
	return nil, fmt.Errorf("unknown report builder step %q", key)
}

// Definition returns the report builder wizard committing through creator.
func Definition(creator ReportCreator, onComplete func(wizard.Completion[Payload])) wizard.Definition[Payload] {
	return wizard.Definition[Payload]{
		Name:  Name,
		Steps: Steps,
		Commit: func(ctx context.Context, draft wizard.Draft[Payload]) (string, error) {
			r, err := Build(draft)
			if err != nil {
				return "", err
			}
			if err := creator.Create(ctx, r); err != nil {
				return "", err
			}
			return r.ID.String(), nil
		},
		OnComplete: onComplete,
		Clone:      clonePayload,
	}
}

func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case *TemplateChoice:
		if v == nil {
			return v
		}
		cp := *v
		return &cp
	case *Content:
		if v == nil {
			return v
		}
		cp := *v
		return &cp
	}
	return p
}

// Build assembles a full draft into an unsaved report.
func Build(draft wizard.Draft[Payload]) (*report.Report, error) {
	tc, ok := draft[StepTemplate].(*TemplateChoice)
	if !ok || tc == nil {
		return nil, fmt.Errorf("report draft: missing %s", StepTemplate)
	}
	c, ok := draft[StepContent].(*Content)
	if !ok || c == nil {
		return nil, fmt.Errorf("report draft: missing %s", StepContent)
	}
	pid, err := uuid.Parse(tc.PatientID)
	if err != nil {
		return nil, fmt.Errorf("report draft: invalid patient id: %w", err)
	}
	return &report.Report{
		PatientID:  pid,
		TemplateID: tc.TemplateID,
		Title:      strings.TrimSpace(c.Title),
		Content:    c.Content,
		Status:     report.StatusDraft,
		Type:       report.TypeMedical,
	}, nil
}

// Preview is the rendered report shown on the Complete step before saving.
type Preview struct {
	PatientID    string `json:"patient_id"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Status       string `json:"status"`
}

func NewPreview(draft wizard.Draft[Payload]) (*Preview, error) {
	r, err := Build(draft)
	if err != nil {
		return nil, err
	}
	tpl, _ := report.TemplateByID(r.TemplateID)
	return &Preview{
		PatientID:    r.PatientID.String(),
		TemplateID:   r.TemplateID,
		TemplateName: tpl.Name,
		Title:        r.Title,
		Content:      r.Content,
		Status:       r.Status,
	}, nil
}
