package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/db"
)

const msgDuplicateEmail = "User with this email already exists"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a staff user under hospitalID. The owning hospital is
// always the caller; the request body cannot choose it.
func (s *Service) Create(ctx context.Context, hospitalID uuid.UUID, in CreateRequest) (*User, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.Email) == "" {
		fields = append(fields, apperr.Missing("body", "email"))
	}
	if in.Password == "" {
		fields = append(fields, apperr.Missing("body", "password"))
	}
	if strings.TrimSpace(in.Role) == "" {
		fields = append(fields, apperr.Missing("body", "role"))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	email := strings.TrimSpace(in.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict(msgDuplicateEmail)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		Role:         strings.TrimSpace(in.Role),
		HospitalID:   &hospitalID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict(msgDuplicateEmail).Wrap(err)
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", u.ID.String()).
		Str("hospital_id", hospitalID.String()).
		Str("role", u.Role).
		Msg("user created")
	return u, nil
}

// Get loads a user by identifier. It is the loader for user tokens and for
// the second hop of patient logins.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*User, int, error) {
	return s.repo.ListByHospital(ctx, hospitalID, limit, offset)
}

// AccountByUsername resolves an email for user logins.
func (s *Service) AccountByUsername(ctx context.Context, email string) (auth.Account, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return auth.Account{}, err
	}
	return auth.Account{ID: u.ID, PasswordHash: u.PasswordHash}, nil
}
