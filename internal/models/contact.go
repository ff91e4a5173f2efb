package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact represents an opted-in WhatsApp contact of a tenant
type Contact struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	PhoneNumber string      `json:"phoneNumber" db:"phone_number"`
	Name        string      `json:"name" db:"name"`
	Email       string      `json:"email,omitempty" db:"email"`
	Tags        StringArray `json:"tags" db:"tags"`
	OptedIn     bool        `json:"optedIn" db:"opted_in"`
}
