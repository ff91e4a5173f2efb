package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/chat"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// ========== Conversation handlers ==========

// HandleListConversations lists the caller's tenant conversations
func (s *RESTServer) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceConversations, models.ActionRead)
	if !ok {
		return
	}

	convs, err := s.chat.ListConversations(r.Context(), user)
	if err != nil {
		s.respondChatError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": convs,
		"total":         len(convs),
	})
}

// HandleCreateConversation opens a new conversation
func (s *RESTServer) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceConversations, models.ActionCreate)
	if !ok {
		return
	}

	var req struct {
		ContactPhone string `json:"contact_phone" validate:"required,max=32"`
		ContactName  string `json:"contact_name" validate:"max=100"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := s.chat.CreateConversation(r.Context(), user, req.ContactPhone, req.ContactName)
	if err != nil {
		s.respondChatError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, conv)
}

// HandleGetMessages returns a conversation's messages oldest first
func (s *RESTServer) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceConversations, models.ActionRead)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	messages, err := s.chat.GetMessages(r.Context(), user, id)
	if err != nil {
		s.respondChatError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    len(messages),
	})
}

// HandleAppendMessage appends a message and optionally triggers an AI reply
func (s *RESTServer) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceConversations, models.ActionSend)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req struct {
		Content string `json:"content" validate:"required"`
		UseAI   bool   `json:"use_ai"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.chat.AppendMessage(r.Context(), user, id, req.Content, req.UseAI)
	if err != nil {
		s.respondChatError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// respondChatError maps conversation service errors to HTTP statuses
func (s *RESTServer) respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		s.respondError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, chat.ErrAccessDenied):
		s.respondError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, chat.ErrTenantRequired):
		s.respondError(w, http.StatusBadRequest, "tenant required")
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// ========== Chatbot handlers ==========

// HandleListChatbots lists the tenant's chatbots
func (s *RESTServer) HandleListChatbots(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceChatbots, models.ActionRead)
	if !ok {
		return
	}
	if user.TenantID == nil {
		s.respondError(w, http.StatusBadRequest, "tenant required")
		return
	}

	bots, err := s.store.ListChatbots(r.Context(), *user.TenantID, storage.DefaultListLimit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"chatbots": bots,
		"total":    len(bots),
	})
}

// HandleCreateChatbot creates a chatbot in the caller's tenant
func (s *RESTServer) HandleCreateChatbot(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePermission(w, r, models.ResourceChatbots, models.ActionCreate)
	if !ok {
		return
	}
	if user.TenantID == nil {
		s.respondError(w, http.StatusBadRequest, "tenant required")
		return
	}

	var req struct {
		Name         string   `json:"name" validate:"required,max=100"`
		SystemPrompt string   `json:"system_prompt" validate:"required"`
		Keywords     []string `json:"keywords"`
		Enabled      bool     `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bot := &models.Chatbot{
		TenantID:     *user.TenantID,
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		Keywords:     req.Keywords,
		Enabled:      req.Enabled,
	}

	if err := s.store.CreateChatbot(r.Context(), bot); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, bot)
}
