package authz

import (
	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// Principal is the authenticated caller attached to a request
type Principal struct {
	UserID   uuid.UUID
	Role     models.Role
	TenantID *uuid.UUID
}

// HasTenant reports whether the principal belongs to a tenant
func (p Principal) HasTenant() bool {
	return p.TenantID != nil
}

// RoleAllowed is the endpoint-level role gate. It is checked before any
// tenant-scope or fine-grained permission lookup.
func RoleAllowed(role models.Role, allowed ...models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// TenantScope reports whether the principal may touch a resource owned by
// resourceTenantID. Tenant-owned business data always requires a tenant
// match; a tenant-less principal (super_admin) is denied here and only
// passes AdminScope on tenant-administration endpoints.
func TenantScope(p Principal, resourceTenantID uuid.UUID) bool {
	if p.TenantID == nil {
		return false
	}
	return *p.TenantID == resourceTenantID
}

// AdminScope reports whether the principal may act on the tenant directory
// itself: super_admin tenant-globally, or a caller scoped to that tenant.
func AdminScope(p Principal, tenantID uuid.UUID) bool {
	if p.Role == models.RoleSuperAdmin {
		return true
	}
	return p.TenantID != nil && *p.TenantID == tenantID
}
