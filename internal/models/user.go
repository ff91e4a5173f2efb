package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a platform user. TenantID is nil for platform-level
// super admins.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role     Role       `json:"role" db:"role"`
	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`
}

// PublicUser is the projection of a user returned by the API. It never
// carries the password hash.
type PublicUser struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     Role       `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id"`
}

// Public returns the API projection of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		TenantID: u.TenantID,
	}
}
