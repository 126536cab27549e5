package analytics

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"patient-count",
		"reports-by-status",
		"reports-by-template",
		"top-symptoms",
		"intake-volume",
		"appointments-by-status",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, id := range expectedIDs {
		m := PredefinedMeasures[i]
		if m.ID != id {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, id, m.ID)
		}
		if m.SQL == "" || m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is incomplete", m.ID)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	if m := FindMeasure("top-symptoms"); m == nil || m.Name != "Top Symptoms" {
		t.Errorf("unexpected lookup result %+v", m)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestBind(t *testing.T) {
	m := FindMeasure("top-symptoms")

	bound, args, err := m.Bind(nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound["limit"] != 10 || len(args) != 1 || args[0] != 10 {
		t.Errorf("expected default limit 10, got %v %v", bound, args)
	}

	bound, _, err = m.Bind(map[string]string{"limit": "5"})
	if err != nil || bound["limit"] != 5 {
		t.Errorf("expected limit 5, got %v (%v)", bound, err)
	}

	for _, bad := range []string{"0", "101", "ten"} {
		if _, _, err := m.Bind(map[string]string{"limit": bad}); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("limit=%s: expected ErrInvalidParameter, got %v", bad, err)
		}
	}
}

func TestEngine_Evaluate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM patient_symptom").WithArgs(3).
		WillReturnRows(pgxmock.NewRows([]string{"symptom", "occurrences", "avg_severity"}).
			AddRow("Cough", int64(4), 3.5).
			AddRow("Fever", int64(2), 6.0))

	report, err := NewEngine(mock).Evaluate(context.Background(), "top-symptoms", map[string]string{"limit": "3"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.MeasureID != "top-symptoms" || report.Parameters["limit"] != 3 {
		t.Errorf("unexpected report header %+v", report)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Results))
	}
	if report.Results[0]["symptom"] != "Cough" || report.Results[1]["avg_severity"] != 6.0 {
		t.Errorf("unexpected rows %v", report.Results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEngine_EvaluateEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM report GROUP BY status").
		WillReturnRows(pgxmock.NewRows([]string{"status", "total"}))

	report, err := NewEngine(mock).Evaluate(context.Background(), "reports-by-status", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Results == nil || len(report.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", report.Results)
	}
	if report.Parameters != nil {
		t.Errorf("expected no parameters, got %v", report.Parameters)
	}
}

func TestEngine_EvaluateErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	engine := NewEngine(mock)
	if _, err := engine.Evaluate(context.Background(), "missing", nil); !errors.Is(err, ErrUnknownMeasure) {
		t.Errorf("expected ErrUnknownMeasure, got %v", err)
	}

	mock.ExpectQuery("FROM patient").WillReturnError(errors.New("connection reset"))
	if _, err := engine.Evaluate(context.Background(), "patient-count", nil); err == nil {
		t.Error("expected query error")
	}
}
