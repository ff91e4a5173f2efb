package models

import (
	"time"

	"github.com/google/uuid"
)

// Chatbot holds per-tenant AI assistant settings. The first enabled bot for
// a tenant answers conversations; there is no per-conversation binding.
type Chatbot struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	Name         string      `json:"name" db:"name"`
	SystemPrompt string      `json:"systemPrompt" db:"system_prompt"`
	Keywords     StringArray `json:"keywords" db:"keywords"`
	Enabled      bool        `json:"enabled" db:"enabled"`
}
