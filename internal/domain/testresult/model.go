package testresult

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/pkg/civil"
)

// TestType is catalogue data referenced by results.
type TestType struct {
	ID          uuid.UUID  `json:"test_type_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// TestResult belongs to one patient and carries the same owning hospital.
type TestResult struct {
	ID                  uuid.UUID  `json:"test_result_id"`
	PatientID           uuid.UUID  `json:"patient_id"`
	TestTypeID          uuid.UUID  `json:"test_type_id"`
	Result              string     `json:"result"`
	TestDate            civil.Date `json:"test_date"`
	CreatedByHospitalID uuid.UUID  `json:"created_by_hospital_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

type CreateRequest struct {
	TestTypeID string     `json:"test_type_id"`
	Result     string     `json:"result"`
	TestDate   civil.Date `json:"test_date"`
}
