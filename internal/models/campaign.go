package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign represents a bulk outbound message campaign
type Campaign struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	Name            string      `json:"name" db:"name"`
	MessageTemplate string      `json:"messageTemplate" db:"message_template"`
	TargetContacts  StringArray `json:"targetContacts" db:"target_contacts"`

	ScheduledAt *time.Time `json:"scheduledAt,omitempty" db:"scheduled_at"`

	Status         string `json:"status" db:"status"`
	SentCount      int    `json:"sentCount" db:"sent_count"`
	DeliveredCount int    `json:"deliveredCount" db:"delivered_count"`
}
