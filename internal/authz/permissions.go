package authz

import (
	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// rolePermissions is the single source of truth for what a newly invited
// user can do when no explicit override is supplied.
var rolePermissions = map[models.Role][]models.Permission{
	models.RoleSuperAdmin: {
		{Resource: models.ResourceTenants, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
		{Resource: models.ResourceUsers, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
		{Resource: models.ResourceSettings, Actions: []models.Action{models.ActionRead, models.ActionUpdate}},
	},
	models.RoleTenantAdmin: {
		{Resource: models.ResourceConversations, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete, models.ActionSend}},
		{Resource: models.ResourceChatbots, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
		{Resource: models.ResourceContacts, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
		{Resource: models.ResourceCampaigns, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete, models.ActionSend}},
		{Resource: models.ResourceAnalytics, Actions: []models.Action{models.ActionRead}},
		{Resource: models.ResourceUsers, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
		{Resource: models.ResourceSettings, Actions: []models.Action{models.ActionRead, models.ActionUpdate}},
		{Resource: models.ResourceTemplates, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate, models.ActionDelete}},
	},
	models.RoleManager: {
		{Resource: models.ResourceConversations, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionSend}},
		{Resource: models.ResourceChatbots, Actions: []models.Action{models.ActionRead, models.ActionUpdate}},
		{Resource: models.ResourceContacts, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionUpdate}},
		{Resource: models.ResourceCampaigns, Actions: []models.Action{models.ActionRead, models.ActionCreate, models.ActionSend}},
		{Resource: models.ResourceAnalytics, Actions: []models.Action{models.ActionRead}},
		{Resource: models.ResourceUsers, Actions: []models.Action{models.ActionRead}},
		{Resource: models.ResourceTemplates, Actions: []models.Action{models.ActionRead}},
	},
	models.RoleAgent: {
		{Resource: models.ResourceConversations, Actions: []models.Action{models.ActionRead, models.ActionSend}},
		{Resource: models.ResourceContacts, Actions: []models.Action{models.ActionRead}},
	},
	models.RoleViewer: {
		{Resource: models.ResourceConversations, Actions: []models.Action{models.ActionRead}},
		{Resource: models.ResourceAnalytics, Actions: []models.Action{models.ActionRead}},
	},
}

// DefaultPermissions returns the permission set granted to a role when no
// explicit override exists. Unknown roles get no access rather than an
// error.
func DefaultPermissions(role models.Role) []models.Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return []models.Permission{}
	}

	out := make([]models.Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether perms grants action on resource. It checks
// the supplied list only; callers merge role defaults themselves when no
// override row exists.
func HasPermission(perms []models.Permission, resource models.Resource, action models.Action) bool {
	for _, p := range perms {
		if p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}
