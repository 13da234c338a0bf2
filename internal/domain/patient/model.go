package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/pkg/civil"
)

// Patient is a tenant-owned record. CreatedByHospitalID is set once at
// creation and is the tenancy boundary for every later read and write.
// A patient logs in with UniqueID and the password of its linked User.
type Patient struct {
	ID                  uuid.UUID              `json:"patient_id"`
	UserID              uuid.UUID              `json:"user_id"`
	UniqueID            string                 `json:"unique_id"`
	DOB                 civil.Date             `json:"dob"`
	Gender              *string                `json:"gender"`
	ContactPhone        *string                `json:"contact_phone"`
	EmergencyContact    map[string]interface{} `json:"emergency_contact"`
	CreatedByHospitalID uuid.UUID              `json:"created_by_hospital_id"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           *time.Time             `json:"updated_at"`
}

// CreateRequest carries identifiers as strings so that malformed values
// can be reported with the right error kind instead of a decode failure.
type CreateRequest struct {
	UserID              string                 `json:"user_id"`
	UniqueID            string                 `json:"unique_id"`
	DOB                 civil.Date             `json:"dob"`
	Gender              *string                `json:"gender"`
	ContactPhone        *string                `json:"contact_phone"`
	EmergencyContact    map[string]interface{} `json:"emergency_contact"`
	CreatedByHospitalID string                 `json:"created_by_hospital_id"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Gender           *string                `json:"gender"`
	ContactPhone     *string                `json:"contact_phone"`
	EmergencyContact map[string]interface{} `json:"emergency_contact"`
}
