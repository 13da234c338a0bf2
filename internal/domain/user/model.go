package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff principal. Role is free-form ("admin", "doctor", "staff",
// "patient"); a patient's login password lives on its linked User.
type User struct {
	ID           uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	HospitalID   *uuid.UUID `json:"hospital_id"`
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}
