package testresult

import (
	"context"

	"github.com/google/uuid"
)

// TypeRepository lookups return db.ErrNotFound when nothing matches.
type TypeRepository interface {
	Create(ctx context.Context, t *TestType) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestType, error)
	List(ctx context.Context) ([]*TestType, error)
}

type ResultRepository interface {
	Create(ctx context.Context, r *TestResult) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TestResult, int, error)
}
