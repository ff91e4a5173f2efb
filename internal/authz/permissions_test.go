package authz

import (
	"testing"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

func TestDefaultPermissionsTenantAdmin(t *testing.T) {
	perms := DefaultPermissions(models.RoleTenantAdmin)
	if len(perms) == 0 {
		t.Fatal("expected permissions for tenant_admin")
	}

	if !HasPermission(perms, models.ResourceConversations, models.ActionDelete) {
		t.Error("tenant_admin should delete conversations")
	}
	if !HasPermission(perms, models.ResourceCampaigns, models.ActionSend) {
		t.Error("tenant_admin should send campaigns")
	}
	if HasPermission(perms, models.ResourceTenants, models.ActionRead) {
		t.Error("tenant_admin should not manage the tenant directory")
	}
}

func TestDefaultPermissionsAgent(t *testing.T) {
	perms := DefaultPermissions(models.RoleAgent)

	if !HasPermission(perms, models.ResourceConversations, models.ActionSend) {
		t.Error("agent should send in conversations")
	}
	if HasPermission(perms, models.ResourceConversations, models.ActionDelete) {
		t.Error("agent should not delete conversations")
	}
	if HasPermission(perms, models.ResourceCampaigns, models.ActionRead) {
		t.Error("agent should not read campaigns")
	}
}

func TestDefaultPermissionsViewerReadOnly(t *testing.T) {
	perms := DefaultPermissions(models.RoleViewer)

	for _, p := range perms {
		for _, a := range p.Actions {
			if a != models.ActionRead {
				t.Errorf("viewer has non-read action %s on %s", a, p.Resource)
			}
		}
	}
}

func TestDefaultPermissionsUnknownRole(t *testing.T) {
	perms := DefaultPermissions(models.Role("intern"))
	if len(perms) != 0 {
		t.Fatalf("unknown role should have no permissions, got %d", len(perms))
	}
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	perms := DefaultPermissions(models.RoleViewer)
	perms[0] = models.Permission{Resource: models.ResourceTenants, Actions: []models.Action{models.ActionDelete}}

	again := DefaultPermissions(models.RoleViewer)
	if again[0].Resource == models.ResourceTenants {
		t.Fatal("mutating the returned slice leaked into the defaults")
	}
}

func TestHasPermissionChecksSuppliedListOnly(t *testing.T) {
	perms := []models.Permission{
		{Resource: models.ResourceContacts, Actions: []models.Action{models.ActionRead}},
	}

	if !HasPermission(perms, models.ResourceContacts, models.ActionRead) {
		t.Error("explicit grant not honored")
	}
	if HasPermission(perms, models.ResourceContacts, models.ActionCreate) {
		t.Error("ungranted action allowed")
	}
	if HasPermission(nil, models.ResourceContacts, models.ActionRead) {
		t.Error("empty permission list allowed access")
	}
}
