package testresult

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/db"
)

const msgInvalidTestType = "Invalid test_type_id"

// PatientLookup resolves a path patient identifier within a hospital's
// tenancy. It returns a NotFound apperr for missing or foreign patients.
type PatientLookup interface {
	GetOwned(ctx context.Context, hospitalID uuid.UUID, rawID string) (*patient.Patient, error)
}

type Service struct {
	types    TypeRepository
	results  ResultRepository
	patients PatientLookup
}

func NewService(types TypeRepository, results ResultRepository, patients PatientLookup) *Service {
	return &Service{types: types, results: results, patients: patients}
}

// Create records a result for a patient owned by hospitalID. Patient
// ownership is checked before the test type, and each has its own error.
func (s *Service) Create(ctx context.Context, hospitalID uuid.UUID, rawPatientID string, in CreateRequest) (*TestResult, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.TestTypeID) == "" {
		fields = append(fields, apperr.Missing("body", "test_type_id"))
	}
	if in.Result == "" {
		fields = append(fields, apperr.Missing("body", "result"))
	}
	if in.TestDate.IsZero() {
		fields = append(fields, apperr.Missing("body", "test_date"))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	p, err := s.patients.GetOwned(ctx, hospitalID, rawPatientID)
	if err != nil {
		return nil, err
	}

	typeID, err := uuid.Parse(strings.TrimSpace(in.TestTypeID))
	if err != nil {
		return nil, apperr.BadRequest(msgInvalidTestType)
	}
	if _, err := s.types.GetByID(ctx, typeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.BadRequest(msgInvalidTestType)
		}
		return nil, fmt.Errorf("check test type: %w", err)
	}

	tr := &TestResult{
		PatientID:           p.ID,
		TestTypeID:          typeID,
		Result:              in.Result,
		TestDate:            in.TestDate,
		CreatedByHospitalID: hospitalID,
	}
	if err := s.results.Create(ctx, tr); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.BadRequest(msgInvalidTestType).Wrap(err)
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("test_result_id", tr.ID.String()).
		Str("patient_id", p.ID.String()).
		Str("hospital_id", hospitalID.String()).
		Msg("test result created")
	return tr, nil
}

// ListForHospital lists results of a patient owned by hospitalID.
func (s *Service) ListForHospital(ctx context.Context, hospitalID uuid.UUID, rawPatientID string, limit, offset int) ([]*TestResult, int, error) {
	p, err := s.patients.GetOwned(ctx, hospitalID, rawPatientID)
	if err != nil {
		return nil, 0, err
	}
	return s.results.ListByPatient(ctx, p.ID, limit, offset)
}

// ListForPatient lists the authenticated patient's own results.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TestResult, int, error) {
	return s.results.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListTypes(ctx context.Context) ([]*TestType, error) {
	return s.types.List(ctx)
}
