package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, limit, offset int) ([]*Report, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	// MarkFinal moves a draft report to final. It fails with ErrAlreadyFinal when the
	// report is not a draft and ErrNotFound when it does not exist.
	MarkFinal(ctx context.Context, id uuid.UUID) (*Report, error)
}
