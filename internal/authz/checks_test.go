package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

func TestRoleAllowed(t *testing.T) {
	if !RoleAllowed(models.RoleTenantAdmin, models.RoleTenantAdmin, models.RoleSuperAdmin) {
		t.Error("tenant_admin should pass its own gate")
	}
	if RoleAllowed(models.RoleAgent, models.RoleTenantAdmin) {
		t.Error("agent passed a tenant_admin gate")
	}
}

func TestTenantScopeDeniesTenantless(t *testing.T) {
	tenant := uuid.New()

	p := Principal{UserID: uuid.New(), Role: models.RoleSuperAdmin, TenantID: nil}
	if TenantScope(p, tenant) {
		t.Error("tenant-less principal should not touch tenant business data")
	}
}

func TestTenantScopeMatchesTenant(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()

	p := Principal{UserID: uuid.New(), Role: models.RoleManager, TenantID: &tenant}
	if !TenantScope(p, tenant) {
		t.Error("same-tenant access denied")
	}
	if TenantScope(p, other) {
		t.Error("cross-tenant access allowed")
	}
}

func TestAdminScope(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()

	super := Principal{UserID: uuid.New(), Role: models.RoleSuperAdmin}
	if !AdminScope(super, tenant) {
		t.Error("super_admin should administer any tenant")
	}

	admin := Principal{UserID: uuid.New(), Role: models.RoleTenantAdmin, TenantID: &tenant}
	if !AdminScope(admin, tenant) {
		t.Error("tenant_admin should administer own tenant")
	}
	if AdminScope(admin, other) {
		t.Error("tenant_admin administered a foreign tenant")
	}
}
