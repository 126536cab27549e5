package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type repoPG struct {
	pool db.Querier
}

func NewRepo(pool db.Querier) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const reportCols = `id, patient_id, template_id, title, content, status, type, created_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO report (id, patient_id, template_id, title, content, status, type, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		rep.ID, rep.PatientID, rep.TemplateID, rep.Title, rep.Content, rep.Status, rep.Type, rep.CreatedBy,
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rep, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM report ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectReports(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM report WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectReports(rows, total)
}

// MarkFinal flips the status in one conditional statement so concurrent finalizes
// cannot both succeed.
func (r *repoPG) MarkFinal(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, `
		UPDATE report SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+reportCols, id, StatusFinal, StatusDraft))
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("finalize report: %w", err)
	}

	var status string
	err = r.conn(ctx).QueryRow(ctx, `SELECT status FROM report WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrAlreadyFinal
}

func collectReports(rows pgx.Rows, total int) ([]*Report, int, error) {
	defer rows.Close()
	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, total, rows.Err()
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.TemplateID, &rep.Title, &rep.Content,
		&rep.Status, &rep.Type, &rep.CreatedBy, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
