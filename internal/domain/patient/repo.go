package patient

import (
	"context"

	"github.com/google/uuid"
)

// userIDConstraint keeps the Patient to User link one-to-one.
const userIDConstraint = "patients_user_id_key"

// Repository lookups return db.ErrNotFound when nothing matches. Owned
// variants match only rows created by hospitalID.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	GetOwned(ctx context.Context, id, hospitalID uuid.UUID) (*Patient, error)
	UpdateOwned(ctx context.Context, id, hospitalID uuid.UUID, upd UpdateRequest) (*Patient, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, uniqueID string, limit, offset int) ([]*Patient, int, error)
}
