package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/ai"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// Service errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrTenantRequired       = errors.New("tenant required")
)

// historyWindow bounds the context fed to the AI to the last N turns
const historyWindow = 10

// Service implements the conversation lifecycle
type Service struct {
	store     storage.Store
	completer ai.ChatCompleter
	aiTimeout time.Duration
}

// NewService creates a new conversation service. completer may be nil when
// no AI integration is configured.
func NewService(store storage.Store, completer ai.ChatCompleter, aiTimeout time.Duration) *Service {
	if aiTimeout <= 0 {
		aiTimeout = 20 * time.Second
	}
	return &Service{
		store:     store,
		completer: completer,
		aiTimeout: aiTimeout,
	}
}

// CreateConversation opens a new conversation in the caller's tenant
func (s *Service) CreateConversation(ctx context.Context, caller *models.User, contactPhone, contactName string) (*models.Conversation, error) {
	if caller.TenantID == nil {
		return nil, ErrTenantRequired
	}

	conv := &models.Conversation{
		TenantID:     *caller.TenantID,
		ContactPhone: contactPhone,
		ContactName:  contactName,
		Status:       models.ConversationStatusOpen,
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return conv, nil
}

// ListConversations lists the caller's tenant conversations ordered by
// latest activity. Agents only see conversations assigned to them.
func (s *Service) ListConversations(ctx context.Context, caller *models.User) ([]*models.Conversation, error) {
	if caller.TenantID == nil {
		return nil, ErrTenantRequired
	}

	var agentID *uuid.UUID
	if caller.Role == models.RoleAgent {
		agentID = &caller.ID
	}

	return s.store.ListConversations(ctx, *caller.TenantID, agentID, storage.DefaultListLimit)
}

// AppendResult is the outcome of a message append. AIResponse is nil when
// no AI reply was requested or no chatbot is enabled.
type AppendResult struct {
	UserMessage *models.Message `json:"user_message"`
	AIResponse  *string         `json:"ai_response"`
}

// AppendMessage stores the caller's message and, when useAI is set,
// generates an assistant reply via the tenant's enabled chatbot. An AI
// failure never fails the append: the human's message is recorded and a
// placeholder is returned instead of a reply.
func (s *Service) AppendMessage(ctx context.Context, caller *models.User, conversationID uuid.UUID, content string, useAI bool) (*AppendResult, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if caller.TenantID != nil && *caller.TenantID != conv.TenantID {
		return nil, ErrAccessDenied
	}

	userMsg := &models.Message{
		ConversationID: conversationID,
		Role:           models.MessageRoleUser,
		Content:        content,
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	var aiResponse *string
	if useAI {
		aiResponse = s.generateReply(ctx, conv)
	}

	if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	return &AppendResult{UserMessage: userMsg, AIResponse: aiResponse}, nil
}

// generateReply runs the AI flow for a just-appended message. It returns
// nil when no chatbot is enabled, the reply text on success, and a
// placeholder string when the completion fails.
func (s *Service) generateReply(ctx context.Context, conv *models.Conversation) *string {
	if s.completer == nil {
		return nil
	}

	bot, err := s.store.GetEnabledChatbot(ctx, conv.TenantID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("tenant_id", conv.TenantID.String()).Msg("Chatbot lookup failed")
		}
		return nil
	}

	history, err := s.store.ListRecentMessages(ctx, conv.ID, historyWindow)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("History load failed")
		placeholder := "AI response error: " + err.Error()
		return &placeholder
	}

	turns := make([]ai.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, ai.Turn{Role: normalizeRole(msg.Role), Content: msg.Content})
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	reply, err := s.completer.Complete(aiCtx, bot.SystemPrompt, turns)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("AI completion failed")
		placeholder := "AI response error: " + err.Error()
		return &placeholder
	}

	assistantMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.MessageRoleAssistant,
		Content:        reply,
	}
	if err := s.store.CreateMessage(ctx, assistantMsg); err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Assistant message store failed")
		placeholder := "AI response error: " + err.Error()
		return &placeholder
	}

	return &reply
}

// normalizeRole coerces any stored role other than user/assistant to user
// when replaying history into AI context
func normalizeRole(role string) string {
	if role == models.MessageRoleUser || role == models.MessageRoleAssistant {
		return role
	}
	return models.MessageRoleUser
}

// GetMessages returns a conversation's messages oldest first
func (s *Service) GetMessages(ctx context.Context, caller *models.User, conversationID uuid.UUID) ([]*models.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if caller.TenantID != nil && *caller.TenantID != conv.TenantID {
		return nil, ErrAccessDenied
	}

	return s.store.ListMessages(ctx, conversationID, storage.DefaultListLimit)
}
