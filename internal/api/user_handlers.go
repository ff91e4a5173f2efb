package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/auth"
	"github.com/bantconfirm/whatsapp-platform/internal/authz"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// ========== User handlers ==========

// HandleGetCurrentUser returns the authenticated user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.respondJSON(w, http.StatusOK, user.Public())
}

// HandleListUsers lists users. Tenant callers see their own tenant;
// super admins may pass tenant_id or list everyone.
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceUsers, models.ActionRead)
	if !ok {
		return
	}

	tenantID := user.TenantID
	if user.Role == models.RoleSuperAdmin {
		tenantID = nil
		if tid := r.URL.Query().Get("tenant_id"); tid != "" {
			id, err := uuid.Parse(tid)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid tenant id")
				return
			}
			tenantID = &id
		}
	}

	users, err := s.store.ListUsers(r.Context(), tenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": out,
		"total": len(out),
	})
}

// HandleInviteUser invites a user into the caller's tenant
func (s *RESTServer) HandleInviteUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req struct {
		Email       string              `json:"email" validate:"required,email"`
		Name        string              `json:"name" validate:"required,max=100"`
		Role        models.Role         `json:"role"`
		Permissions []models.Permission `json:"permissions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Role == "" {
		req.Role = models.RoleAgent
	}

	invite, err := s.auth.InviteUser(r.Context(), user, req.Email, req.Name, req.Role, req.Permissions)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccessDenied):
			s.respondError(w, http.StatusForbidden, "access denied")
		case errors.Is(err, auth.ErrUserExists):
			s.respondError(w, http.StatusBadRequest, "user already exists")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, invite)
}

// HandleDeleteUser removes a user from the caller's tenant
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.auth.DeleteUser(r.Context(), user, id); err != nil {
		switch {
		case errors.Is(err, auth.ErrAccessDenied):
			s.respondError(w, http.StatusForbidden, "access denied")
		case errors.Is(err, auth.ErrSelfDeletion):
			s.respondError(w, http.StatusBadRequest, "cannot delete yourself")
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "user not found")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetUserPermissions returns a user's effective permission set
func (s *RESTServer) HandleGetUserPermissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requirePermission(w, r, models.ResourceUsers, models.ActionRead)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	target, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !s.sameTenant(caller, target) {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}

	perms := authz.DefaultPermissions(target.Role)
	source := "role_default"
	if override, err := s.store.GetUserPermission(r.Context(), target.ID); err == nil {
		perms = override.Permissions
		source = "override"
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     target.ID,
		"role":        target.Role,
		"source":      source,
		"permissions": perms,
	})
}

// HandleUpdateUserPermissions replaces a user's permission override
func (s *RESTServer) HandleUpdateUserPermissions(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)
	if !authz.RoleAllowed(caller.Role, models.RoleTenantAdmin) || caller.TenantID == nil {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Permissions []models.Permission `json:"permissions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if target.TenantID == nil || *target.TenantID != *caller.TenantID {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}

	override := &models.UserPermission{
		UserID:      target.ID,
		TenantID:    *caller.TenantID,
		Permissions: req.Permissions,
	}

	if err := s.store.UpsertUserPermission(r.Context(), override); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     target.ID,
		"permissions": override.Permissions,
	})
}

// sameTenant reports whether the caller may see the target's directory
// entry: super admins see everyone, tenant callers only their tenant.
func (s *RESTServer) sameTenant(caller, target *models.User) bool {
	if caller.Role == models.RoleSuperAdmin {
		return true
	}
	return caller.TenantID != nil && target.TenantID != nil && *caller.TenantID == *target.TenantID
}
