package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies a user's coarse access level
type Role string

// Known roles
const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleManager     Role = "manager"
	RoleAgent       Role = "agent"
	RoleViewer      Role = "viewer"
)

// Resource identifies a permissioned resource class
type Resource string

// Known resources
const (
	ResourceTenants       Resource = "tenants"
	ResourceConversations Resource = "conversations"
	ResourceChatbots      Resource = "chatbots"
	ResourceContacts      Resource = "contacts"
	ResourceCampaigns     Resource = "campaigns"
	ResourceAnalytics     Resource = "analytics"
	ResourceUsers         Resource = "users"
	ResourceSettings      Resource = "settings"
	ResourceTemplates     Resource = "templates"
)

// Action identifies an operation on a resource
type Action string

// Known actions
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSend   Action = "send"
)

// Permission grants a set of actions on one resource
type Permission struct {
	Resource Resource `json:"resource"`
	Actions  []Action `json:"actions"`
}

// PermissionList is a JSON-encoded list of permissions
type PermissionList []Permission

// Value implements driver.Valuer
func (l PermissionList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Permission{})
	}
	return json.Marshal([]Permission(l))
}

// Scan implements sql.Scanner
func (l *PermissionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return nil
	}
}

// UserPermission is a per-user permission override. Absence of a row means
// the user's role defaults apply.
type UserPermission struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UserID      uuid.UUID      `json:"userId" db:"user_id"`
	TenantID    uuid.UUID      `json:"tenantId" db:"tenant_id"`
	Permissions PermissionList `json:"permissions" db:"permissions"`
}
