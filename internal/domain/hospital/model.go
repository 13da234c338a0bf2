package hospital

import (
	"time"

	"github.com/google/uuid"
)

// Hospital is both a tenant and a principal. It logs in with its license
// number.
type Hospital struct {
	ID            uuid.UUID              `json:"hospital_id"`
	Name          string                 `json:"name"`
	LicenseNumber string                 `json:"license_number"`
	Address       map[string]interface{} `json:"address"`
	ContactEmail  *string                `json:"contact_email"`
	ContactPhone  *string                `json:"contact_phone"`
	PasswordHash  string                 `json:"-"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at"`
}

// Registration is the self-registration request body.
type Registration struct {
	Name          string                 `json:"name"`
	LicenseNumber string                 `json:"license_number"`
	Address       map[string]interface{} `json:"address"`
	ContactEmail  *string                `json:"contact_email"`
	ContactPhone  *string                `json:"contact_phone"`
	Password      string                 `json:"password"`
}
