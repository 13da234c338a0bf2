package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository lookups return db.ErrNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*User, int, error)
}
