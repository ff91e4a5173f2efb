package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageTemplate is a Meta-reviewed outbound message template
type MessageTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"` // MARKETING, UTILITY, AUTHENTICATION
	Language string `json:"language" db:"language"`

	HeaderType    string `json:"headerType,omitempty" db:"header_type"` // TEXT, IMAGE, VIDEO, DOCUMENT
	HeaderContent string `json:"headerContent,omitempty" db:"header_content"`
	BodyText      string `json:"bodyText" db:"body_text"`
	FooterText    string `json:"footerText,omitempty" db:"footer_text"`

	Buttons   Variables   `json:"buttons" db:"buttons"`
	VarNames  StringArray `json:"variables" db:"variables"`

	Status         string `json:"status" db:"status"` // PENDING, APPROVED, REJECTED
	MetaTemplateID string `json:"metaTemplateId,omitempty" db:"meta_template_id"`
}
