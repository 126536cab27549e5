// Package analytics evaluates predefined practice measures against the database.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

var (
	ErrUnknownMeasure   = errors.New("measure not found")
	ErrInvalidParameter = errors.New("invalid measure parameter")
)

// Parameter is a positional integer argument of a measure query.
type Parameter struct {
	Name    string `json:"name"`
	Default int    `json:"default"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
}

// MeasureDefinition defines a measure with its SQL query. Parameters bind to $1, $2...
// in order.
type MeasureDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SQL         string      `json:"-"`
	Parameters  []Parameter `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]int           `json:"parameters,omitempty"`
}

var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count",
		Name:        "Patient Count",
		Description: "Total number of patients and how many are active",
		SQL:         `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_count FROM patient`,
	},
	{
		ID:          "reports-by-status",
		Name:        "Reports by Status",
		Description: "Number of medical reports in each status",
		SQL:         `SELECT status, COUNT(*) AS total FROM report GROUP BY status ORDER BY total DESC`,
	},
	{
		ID:          "reports-by-template",
		Name:        "Reports by Template",
		Description: "Number of medical reports written from each template",
		SQL:         `SELECT template_id, COUNT(*) AS total FROM report GROUP BY template_id ORDER BY total DESC`,
	},
	{
		ID:          "top-symptoms",
		Name:        "Top Symptoms",
		Description: "Most frequently reported symptoms with their average severity",
		SQL: `SELECT name AS symptom, COUNT(*) AS occurrences, AVG(severity)::float8 AS avg_severity
		FROM patient_symptom GROUP BY name ORDER BY occurrences DESC, symptom LIMIT $1`,
		Parameters: []Parameter{{Name: "limit", Default: 10, Min: 1, Max: 100}},
	},
	{
		ID:          "intake-volume",
		Name:        "Intake Volume by Day",
		Description: "New patients registered per day over the trailing window",
		SQL: `SELECT created_at::date AS day, COUNT(*) AS intakes FROM patient
		WHERE created_at >= now() - make_interval(days => $1) GROUP BY day ORDER BY day`,
		Parameters: []Parameter{{Name: "days", Default: 30, Min: 1, Max: 366}},
	},
	{
		ID:          "appointments-by-status",
		Name:        "Appointments by Status",
		Description: "Appointments starting in the trailing window, by outcome",
		SQL: `SELECT status, COUNT(*) AS total FROM patient_appointment
		WHERE start_time >= now() - make_interval(days => $1) GROUP BY status ORDER BY total DESC`,
		Parameters: []Parameter{{Name: "days", Default: 30, Min: 1, Max: 366}},
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Bind resolves raw query values against the measure's parameters, applying defaults.
func (m *MeasureDefinition) Bind(raw map[string]string) (map[string]int, []any, error) {
	bound := make(map[string]int, len(m.Parameters))
	args := make([]any, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		v := p.Default
		if s, ok := raw[p.Name]; ok && s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < p.Min || n > p.Max {
				return nil, nil, fmt.Errorf("%w: %s must be an integer between %d and %d", ErrInvalidParameter, p.Name, p.Min, p.Max)
			}
			v = n
		}
		bound[p.Name] = v
		args = append(args, v)
	}
	return bound, args, nil
}

type Engine struct {
	db  db.Querier
	now func() time.Time
}

func NewEngine(q db.Querier) *Engine {
	return &Engine{db: q, now: time.Now}
}

// Evaluate runs the measure identified by id.
func (e *Engine) Evaluate(ctx context.Context, id string, raw map[string]string) (*MeasureReport, error) {
	m := FindMeasure(id)
	if m == nil {
		return nil, ErrUnknownMeasure
	}
	params, args, err := m.Bind(raw)
	if err != nil {
		return nil, err
	}
	results, err := e.query(ctx, m.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", m.ID, err)
	}
	report := &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: e.now(),
		Results:     results,
	}
	if len(params) > 0 {
		report.Parameters = params
	}
	return report, nil
}

func (e *Engine) query(ctx context.Context, sql string, args ...any) ([]map[string]interface{}, error) {
	rows, err := db.Conn(ctx, e.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
