package models

import (
	"time"

	"github.com/google/uuid"
)

// WhatsAppAccount is a tenant's registered WhatsApp number
type WhatsAppAccount struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	PhoneNumber string `json:"phoneNumber" db:"phone_number"`
	DisplayName string `json:"displayName" db:"display_name"`
	Status      string `json:"status" db:"status"`
}

// MetaConfig holds a tenant's Meta Cloud API credentials. The access token
// is never echoed back by the API.
type MetaConfig struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	PhoneNumberID      string `json:"phoneNumberId" db:"phone_number_id"`
	BusinessAccountID  string `json:"businessAccountId" db:"business_account_id"`
	AccessToken        string `json:"-" db:"access_token"`
	WebhookVerifyToken string `json:"webhookVerifyToken" db:"webhook_verify_token"`

	Status string `json:"status" db:"status"`
}
