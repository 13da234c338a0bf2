package hospital

import (
	"context"

	"github.com/google/uuid"
)

// Repository lookups return db.ErrNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetByLicenseNumber(ctx context.Context, license string) (*Hospital, error)
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
}
