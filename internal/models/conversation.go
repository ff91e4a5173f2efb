package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Anything else found in storage is coerced to "user" when
// building AI context.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ConversationStatusOpen is the status of a newly created conversation.
// Status is a free-form string; no transition rules are enforced.
const ConversationStatusOpen = "open"

// Conversation represents a chat thread with one contact
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	ContactPhone string `json:"contactPhone" db:"contact_phone"`
	ContactName  string `json:"contactName,omitempty" db:"contact_name"`

	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty" db:"assigned_agent_id"`

	Status string `json:"status" db:"status"`
}

// Message is one entry in a conversation. Append-only.
type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversationId" db:"conversation_id"`

	Role    string `json:"role" db:"role"`
	Content string `json:"content" db:"content"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Status    string    `json:"status" db:"status"`
}
