package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/events"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// ========== Outbound handlers ==========

// HandleSendMessage sends a text message through the tenant's Meta
// Cloud API credentials.
func (s *RESTServer) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceConversations, models.ActionSend)
	if !ok {
		return
	}

	var req struct {
		To      string `json:"to" validate:"required,max=32"`
		Message string `json:"message" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
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

	result, err := s.meta.SendText(r.Context(), cfg, req.To, req.Message)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", user.TenantID.String()).Msg("Outbound send failed")
		s.respondError(w, http.StatusBadGateway, "message send failed")
		return
	}

	// Record the outbound message when a conversation with this contact
	// already exists. Sends to unknown numbers are not threaded.
	if conv, err := s.store.GetConversationByPhone(r.Context(), *user.TenantID, req.To); err == nil {
		msg := &models.Message{
			ConversationID: conv.ID,
			Role:           models.MessageRoleAssistant,
			Content:        req.Message,
			Status:         "sent",
		}
		if err := s.store.CreateMessage(r.Context(), msg); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Outbound message store failed")
		} else if err := s.store.TouchConversation(r.Context(), conv.ID); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Conversation touch failed")
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "sent",
		"message_id": result.MessageID,
	})
}

// ========== Meta config handlers ==========

// HandleGetMetaConfig returns the tenant's Meta Cloud API config. The
// access token is never echoed.
func (s *RESTServer) HandleGetMetaConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceSettings, models.ActionRead)
	if !ok {
		return
	}

	cfg, err := s.store.GetMetaConfig(r.Context(), *user.TenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "meta config not set")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, cfg)
}

// HandleUpsertMetaConfig creates or replaces the tenant's Meta Cloud
// API config
func (s *RESTServer) HandleUpsertMetaConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := s.tenantScoped(w, r, models.ResourceSettings, models.ActionUpdate)
	if !ok {
		return
	}

	var req struct {
		PhoneNumberID      string `json:"phone_number_id" validate:"required"`
		BusinessAccountID  string `json:"business_account_id" validate:"required"`
		AccessToken        string `json:"access_token" validate:"required"`
		WebhookVerifyToken string `json:"webhook_verify_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := &models.MetaConfig{
		TenantID:           *user.TenantID,
		PhoneNumberID:      req.PhoneNumberID,
		BusinessAccountID:  req.BusinessAccountID,
		AccessToken:        req.AccessToken,
		WebhookVerifyToken: req.WebhookVerifyToken,
	}

	if err := s.store.UpsertMetaConfig(r.Context(), cfg); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, cfg)
}

// ========== Webhook handlers ==========

// HandleWebhookVerify answers Meta's webhook verification handshake. The
// verify token identifies the tenant; a match echoes the challenge back
// as plain text.
func (s *RESTServer) HandleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || token == "" {
		s.respondError(w, http.StatusForbidden, "verification failed")
		return
	}

	if _, err := s.store.FindMetaConfigByVerifyToken(r.Context(), token); err != nil {
		s.respondError(w, http.StatusForbidden, "verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// webhookPayload mirrors the subset of Meta's webhook envelope we consume
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Type string `json:"type"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// HandleWebhookReceive ingests inbound WhatsApp messages. Meta retries
// aggressively on non-200 responses, so processing errors are logged and
// swallowed; the response is always 200.
func (s *RESTServer) HandleWebhookReceive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("Webhook payload decode failed")
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	ctx := r.Context()

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			contactNames := make(map[string]string, len(value.Contacts))
			for _, c := range value.Contacts {
				contactNames[c.WaID] = c.Profile.Name
			}

			for _, msg := range value.Messages {
				if err := s.ingestInbound(ctx, value.Metadata.PhoneNumberID, msg.From, contactNames[msg.From], msg.Text.Body); err != nil {
					log.Warn().Err(err).Str("from", msg.From).Msg("Inbound message ingestion failed")
					if s.metrics != nil {
						s.metrics.Errors.WithLabelValues("webhook").Inc()
					}
				}
			}
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// ingestInbound attributes one inbound message to a tenant, threads it
// into a conversation, and publishes an event for downstream consumers.
func (s *RESTServer) ingestInbound(ctx context.Context, phoneNumberID, from, contactName, body string) error {
	cfg, err := s.store.FindMetaConfigByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return err
	}

	conv, err := s.store.GetConversationByPhone(ctx, cfg.TenantID, from)
	if errors.Is(err, storage.ErrNotFound) {
		conv = &models.Conversation{
			TenantID:     cfg.TenantID,
			ContactPhone: from,
			ContactName:  contactName,
			Status:       models.ConversationStatusOpen,
		}
		err = s.store.CreateConversation(ctx, conv)
	}
	if err != nil {
		return err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.MessageRoleUser,
		Content:        body,
		Status:         "received",
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return err
	}

	if err := s.store.TouchConversation(ctx, conv.ID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.WebhookMessages.WithLabelValues("text").Inc()
	}

	if err := s.events.PublishInbound(events.InboundMessage{
		TenantID:       cfg.TenantID.String(),
		ConversationID: conv.ID.String(),
		From:           from,
		Content:        body,
		ReceivedAt:     time.Now(),
	}); err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Event publish failed")
	}

	return nil
}
