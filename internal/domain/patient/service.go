package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/user"
	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/db"
)

const (
	msgForeignHospital = "Cannot create patient for another hospital"
	msgDuplicateUnique = "Patient with this unique_id already exists"
	msgInvalidUser     = "Invalid user_id"
	msgUserLinked      = "User is already linked to another patient"
	msgNotOwned        = "Patient not found or not associated with this hospital"
)

// UserLookup resolves the User that holds a patient's password.
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	repo  Repository
	users UserLookup
}

func NewService(repo Repository, users UserLookup) *Service {
	return &Service{repo: repo, users: users}
}

// Create inserts a patient owned by hospitalID. The body's
// created_by_hospital_id is required and must name the caller.
func (s *Service) Create(ctx context.Context, hospitalID uuid.UUID, in CreateRequest) (*Patient, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.UserID) == "" {
		fields = append(fields, apperr.Missing("body", "user_id"))
	}
	if strings.TrimSpace(in.UniqueID) == "" {
		fields = append(fields, apperr.Missing("body", "unique_id"))
	}
	if in.DOB.IsZero() {
		fields = append(fields, apperr.Missing("body", "dob"))
	}
	if strings.TrimSpace(in.CreatedByHospitalID) == "" {
		fields = append(fields, apperr.Missing("body", "created_by_hospital_id"))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	owner, err := uuid.Parse(strings.TrimSpace(in.CreatedByHospitalID))
	if err != nil || owner != hospitalID {
		zerolog.Ctx(ctx).Warn().
			Str("hospital_id", hospitalID.String()).
			Str("requested_owner", in.CreatedByHospitalID).
			Msg("patient create for foreign hospital rejected")
		return nil, apperr.Forbidden(msgForeignHospital)
	}

	uniqueID := strings.TrimSpace(in.UniqueID)
	if _, err := s.repo.GetByUniqueID(ctx, uniqueID); err == nil {
		return nil, apperr.Conflict(msgDuplicateUnique)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("check unique_id: %w", err)
	}

	userID, err := s.linkableUser(ctx, hospitalID, in.UserID)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		UserID:              userID,
		UniqueID:            uniqueID,
		DOB:                 in.DOB,
		Gender:              in.Gender,
		ContactPhone:        in.ContactPhone,
		EmergencyContact:    in.EmergencyContact,
		CreatedByHospitalID: hospitalID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		switch {
		case db.IsUniqueViolation(err) && db.ConstraintName(err) == userIDConstraint:
			return nil, apperr.Conflict(msgUserLinked).Wrap(err)
		case db.IsUniqueViolation(err):
			return nil, apperr.Conflict(msgDuplicateUnique).Wrap(err)
		case db.IsForeignKeyViolation(err):
			return nil, apperr.BadRequest(msgInvalidUser).Wrap(err)
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("patient_id", p.ID.String()).
		Str("hospital_id", hospitalID.String()).
		Msg("patient created")
	return p, nil
}

// linkableUser resolves the credential holder for a new patient. It must be
// a User of the creating hospital not yet linked to any patient.
func (s *Service) linkableUser(ctx context.Context, hospitalID uuid.UUID, raw string) (uuid.UUID, error) {
	userID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.BadRequest(msgInvalidUser)
	}
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return uuid.Nil, apperr.BadRequest(msgInvalidUser)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load user: %w", err)
	}
	if u.HospitalID == nil || *u.HospitalID != hospitalID {
		zerolog.Ctx(ctx).Warn().
			Str("hospital_id", hospitalID.String()).
			Str("user_id", userID.String()).
			Msg("patient create with user of another hospital rejected")
		return uuid.Nil, apperr.BadRequest(msgInvalidUser)
	}

	if _, err := s.repo.GetByUserID(ctx, userID); err == nil {
		return uuid.Nil, apperr.Conflict(msgUserLinked)
	} else if !errors.Is(err, db.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("check user link: %w", err)
	}
	return userID, nil
}

// Update applies a partial update to a patient owned by hospitalID. A
// malformed id, a missing patient and a patient owned elsewhere all yield
// the same 404.
func (s *Service) Update(ctx context.Context, hospitalID uuid.UUID, rawID string, in UpdateRequest) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound(msgNotOwned)
	}
	p, err := s.repo.UpdateOwned(ctx, id, hospitalID, in)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(msgNotOwned)
	}
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

// GetOwned loads a patient by raw path identifier, scoped to hospitalID.
func (s *Service) GetOwned(ctx context.Context, hospitalID uuid.UUID, rawID string) (*Patient, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound(msgNotOwned)
	}
	p, err := s.repo.GetOwned(ctx, id, hospitalID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(msgNotOwned)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// ListByHospital returns the caller's patients, optionally narrowed to one
// unique_id.
func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID, uniqueID string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListByHospital(ctx, hospitalID, strings.TrimSpace(uniqueID), limit, offset)
}

// Get loads a patient by identifier. It is the loader for patient tokens.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// AccountByUsername resolves a patient unique_id to the patient's identity
// and the password hash of its linked User.
func (s *Service) AccountByUsername(ctx context.Context, uniqueID string) (auth.Account, error) {
	p, err := s.repo.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return auth.Account{}, err
	}
	u, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return auth.Account{}, fmt.Errorf("load credential holder for patient %s: %w", p.ID, err)
	}
	return auth.Account{ID: p.ID, PasswordHash: u.PasswordHash}, nil
}
