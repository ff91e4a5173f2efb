package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/auth"
	"github.com/bantconfirm/whatsapp-platform/internal/authz"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// analyticsCacheTTL bounds staleness of the cached analytics overview
const analyticsCacheTTL = 30 * time.Second

// ========== Auth handlers ==========

// HandleSignup handles user registration
func (s *RESTServer) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=6"`
		Name       string `json:"name" validate:"required,max=100"`
		TenantName string `json:"tenant_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.auth.Signup(r.Context(), req.Email, req.Password, req.Name, req.TenantName)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			s.respondError(w, http.StatusBadRequest, "email already registered")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, session)
}

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.respondJSON(w, http.StatusOK, session)
}

// ========== Tenant handlers ==========

// HandleListTenants lists all tenants. Super admin only.
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !authz.RoleAllowed(user.Role, models.RoleSuperAdmin) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	tenants, err := s.store.ListTenants(r.Context(), storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   len(tenants),
	})
}

// HandleGetTenant gets a tenant. Super admins see any tenant, everyone
// else only their own.
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	principal := authz.Principal{UserID: user.ID, Role: user.Role, TenantID: user.TenantID}
	if !authz.AdminScope(principal, id) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, tenant)
}

// ========== Analytics handlers ==========

type analyticsOverview struct {
	Conversations int64 `json:"conversations"`
	Messages      int64 `json:"messages"`
	Contacts      int64 `json:"contacts"`
	Campaigns     int64 `json:"campaigns"`
}

// HandleAnalyticsOverview returns a tenant's headline counts. Responses
// are cached in Redis for a short window when Redis is configured.
func (s *RESTServer) HandleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceAnalytics, models.ActionRead)
	if !ok {
		return
	}
	if user.TenantID == nil {
		s.respondError(w, http.StatusBadRequest, "tenant required")
		return
	}

	ctx := r.Context()
	cacheKey := "analytics:overview:" + user.TenantID.String()

	if s.redis != nil {
		var cached analyticsOverview
		hit, err := s.redis.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Analytics cache read failed")
		}
		if hit {
			s.respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	var overview analyticsOverview
	var err error

	if overview.Conversations, err = s.store.CountConversations(ctx, *user.TenantID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if overview.Messages, err = s.store.CountMessages(ctx); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if overview.Contacts, err = s.store.CountContacts(ctx, *user.TenantID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if overview.Campaigns, err = s.store.CountCampaigns(ctx, *user.TenantID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, cacheKey, overview, analyticsCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Analytics cache write failed")
		}
	}

	s.respondJSON(w, http.StatusOK, overview)
}

// ========== Permission helpers ==========

// effectivePermissions resolves a user's permission set: the stored
// override when one exists, otherwise the role defaults.
func (s *RESTServer) effectivePermissions(r *http.Request, user *models.User) []models.Permission {
	override, err := s.store.GetUserPermission(r.Context(), user.ID)
	if err == nil {
		return override.Permissions
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Permission lookup failed")
	}
	return authz.DefaultPermissions(user.Role)
}

// requirePermission gates a handler on a resource action. It writes the
// 403 itself; callers just return when ok is false.
func (s *RESTServer) requirePermission(w http.ResponseWriter, r *http.Request, resource models.Resource, action models.Action) (*models.User, bool) {
	user := currentUser(r)
	if user == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	if !authz.HasPermission(s.effectivePermissions(r, user), resource, action) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return nil, false
	}
	return user, true
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/health",
	})
}
