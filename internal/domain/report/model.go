package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("report not found")
	ErrAlreadyFinal = errors.New("report is already final")
)

const (
	StatusDraft = "draft"
	StatusFinal = "final"

	TypeMedical = "medical"
)

// Report maps to the report table.
type Report struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Status     string    `db:"status" json:"status"`
	Type       string    `db:"type" json:"type"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Template is a starting point for a report: a default title and section skeleton.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Sections    []string `json:"sections"`
}
