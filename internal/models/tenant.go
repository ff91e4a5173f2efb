package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated business account
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name string `json:"name" db:"name"`

	// Branding
	LogoURL      string `json:"logoUrl,omitempty" db:"logo_url"`
	PrimaryColor string `json:"primaryColor" db:"primary_color"`

	Status string `json:"status" db:"status"`
}

// DefaultPrimaryColor is applied to new tenants with no branding
const DefaultPrimaryColor = "#0B5ED7"
