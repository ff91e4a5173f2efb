package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// tenantScoped gates a handler on a permission and requires the caller to
// belong to a tenant. Writes the error response itself.
func (s *RESTServer) tenantScoped(w http.ResponseWriter, r *http.Request, resource models.Resource, action models.Action) (*models.User, bool) {
	user, ok := s.requirePermission(w, r, resource, action)
	if !ok {
		return nil, false
	}
	if user.TenantID == nil {
		s.respondError(w, http.StatusBadRequest, "tenant required")
		return nil, false
	}
	return user, true
}

// ========== Contact handlers ==========

// HandleListContacts lists the tenant's contacts
func (s *RESTServer) HandleListContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceContacts, models.ActionRead)
	if !ok {
		return
	}

	contacts, err := s.store.ListContacts(r.Context(), *user.TenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": contacts,
		"total":    len(contacts),
	})
}

// HandleCreateContact creates a contact
func (s *RESTServer) HandleCreateContact(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceContacts, models.ActionCreate)
	if !ok {
		return
	}

	var req struct {
		PhoneNumber string   `json:"phone_number" validate:"required,max=32"`
		Name        string   `json:"name" validate:"required,max=100"`
		Email       string   `json:"email" validate:"email"`
		Tags        []string `json:"tags"`
		OptedIn     bool     `json:"opted_in"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	contact := &models.Contact{
		TenantID:    *user.TenantID,
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Email:       req.Email,
		Tags:        req.Tags,
		OptedIn:     req.OptedIn,
	}

	if err := s.store.CreateContact(r.Context(), contact); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "contact already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, contact)
}

// ========== Campaign handlers ==========

// HandleListCampaigns lists the tenant's campaigns
func (s *RESTServer) HandleListCampaigns(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceCampaigns, models.ActionRead)
	if !ok {
		return
	}

	campaigns, err := s.store.ListCampaigns(r.Context(), *user.TenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"total":     len(campaigns),
	})
}

// HandleCreateCampaign creates a campaign in draft status
func (s *RESTServer) HandleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceCampaigns, models.ActionCreate)
	if !ok {
		return
	}

	var req struct {
		Name            string     `json:"name" validate:"required,max=100"`
		MessageTemplate string     `json:"message_template" validate:"required"`
		TargetContacts  []string   `json:"target_contacts"`
		ScheduledAt     *time.Time `json:"scheduled_at"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	campaign := &models.Campaign{
		TenantID:        *user.TenantID,
		Name:            req.Name,
		MessageTemplate: req.MessageTemplate,
		TargetContacts:  req.TargetContacts,
		ScheduledAt:     req.ScheduledAt,
		Status:          "draft",
	}

	if err := s.store.CreateCampaign(r.Context(), campaign); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, campaign)
}

// ========== Template handlers ==========

// HandleListTemplates lists the tenant's message templates
func (s *RESTServer) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceTemplates, models.ActionRead)
	if !ok {
		return
	}

	templates, err := s.store.ListTemplates(r.Context(), *user.TenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"total":     len(templates),
	})
}

// HandleCreateTemplate creates a message template in pending status
func (s *RESTServer) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceTemplates, models.ActionCreate)
	if !ok {
		return
	}

	var req struct {
		Name          string   `json:"name" validate:"required,max=100"`
		Category      string   `json:"category" validate:"required"`
		Language      string   `json:"language" validate:"required"`
		HeaderType    string   `json:"header_type"`
		HeaderContent string   `json:"header_content"`
		BodyText      string   `json:"body_text" validate:"required"`
		FooterText    string   `json:"footer_text"`
		Variables     []string `json:"variables"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl := &models.MessageTemplate{
		TenantID:      *user.TenantID,
		Name:          req.Name,
		Category:      req.Category,
		Language:      req.Language,
		HeaderType:    req.HeaderType,
		HeaderContent: req.HeaderContent,
		BodyText:      req.BodyText,
		FooterText:    req.FooterText,
		VarNames:      req.Variables,
		Status:        "PENDING",
	}

	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, tpl)
}

// HandleSubmitTemplate submits a template to Meta for review and records
// the assigned template id and review status.
func (s *RESTServer) HandleSubmitTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceTemplates, models.ActionUpdate)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	tpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "template not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tpl.TenantID != *user.TenantID {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}

	cfg, err := s.store.GetMetaConfig(r.Context(), *user.TenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusBadRequest, "meta config not set")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metaID, status, err := s.meta.SubmitTemplate(r.Context(), cfg, tpl)
	if err != nil {
		log.Warn().Err(err).Str("template_id", tpl.ID.String()).Msg("Template submission failed")
		s.respondError(w, http.StatusBadGateway, "template submission failed")
		return
	}

	tpl.MetaTemplateID = metaID
	tpl.Status = status

	if err := s.store.UpdateTemplate(r.Context(), tpl); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, tpl)
}

// ========== WhatsApp account handlers ==========

// HandleListWhatsAppAccounts lists the tenant's WhatsApp numbers
func (s *RESTServer) HandleListWhatsAppAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceSettings, models.ActionRead)
	if !ok {
		return
	}

	accounts, err := s.store.ListWhatsAppAccounts(r.Context(), *user.TenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

// HandleCreateWhatsAppAccount registers a WhatsApp number for the tenant
func (s *RESTServer) HandleCreateWhatsAppAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceSettings, models.ActionUpdate)
	if !ok {
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number" validate:"required,max=32"`
		DisplayName string `json:"display_name" validate:"required,max=100"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	account := &models.WhatsAppAccount{
		TenantID:    *user.TenantID,
		PhoneNumber: req.PhoneNumber,
		DisplayName: req.DisplayName,
		Status:      "pending",
	}

	if err := s.store.CreateWhatsAppAccount(r.Context(), account); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "account already registered")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, account)
}
