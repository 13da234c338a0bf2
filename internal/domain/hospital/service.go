package hospital

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/db"
)

const msgDuplicateLicense = "Hospital with this license_number already exists"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a hospital from an unauthenticated self-registration.
func (s *Service) Register(ctx context.Context, in Registration) (*Hospital, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, apperr.Missing("body", "name"))
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		fields = append(fields, apperr.Missing("body", "license_number"))
	}
	if in.Address == nil {
		fields = append(fields, apperr.Missing("body", "address"))
	}
	if in.Password == "" {
		fields = append(fields, apperr.Missing("body", "password"))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	if _, err := s.repo.GetByLicenseNumber(ctx, in.LicenseNumber); err == nil {
		return nil, apperr.Conflict(msgDuplicateLicense)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("check license number: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	h := &Hospital{
		Name:          in.Name,
		LicenseNumber: in.LicenseNumber,
		Address:       in.Address,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  in.ContactPhone,
		PasswordHash:  hash,
	}
	if err := s.repo.Create(ctx, h); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict(msgDuplicateLicense).Wrap(err)
		}
		return nil, err
	}
	return h, nil
}

// Get loads a hospital by identifier. It is the loader for hospital tokens.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// AccountByUsername resolves a license number for hospital logins.
func (s *Service) AccountByUsername(ctx context.Context, license string) (auth.Account, error) {
	h, err := s.repo.GetByLicenseNumber(ctx, license)
	if err != nil {
		return auth.Account{}, err
	}
	return auth.Account{ID: h.ID, PasswordHash: h.PasswordHash}, nil
}
