package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// ========== Conversation methods ==========

// CreateConversation creates a new conversation
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	if conv.Status == "" {
		conv.Status = models.ConversationStatusOpen
	}

	query := `
		INSERT INTO conversations (
			id, created_at, updated_at, tenant_id, contact_phone, contact_name,
			assigned_agent_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		conv.ID, conv.CreatedAt, conv.UpdatedAt, conv.TenantID, conv.ContactPhone,
		conv.ContactName, conv.AssignedAgentID, conv.Status,
	)
	return err
}

// GetConversation gets a conversation by ID
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, contact_phone, contact_name,
		       assigned_agent_id, status
		FROM conversations
		WHERE id = $1`

	conv := &models.Conversation{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&conv.ID, &conv.CreatedAt, &conv.UpdatedAt, &conv.TenantID, &conv.ContactPhone,
		&conv.ContactName, &conv.AssignedAgentID, &conv.Status,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return conv, err
}

// GetConversationByPhone gets a tenant's most recent conversation with a
// contact phone. Used by webhook ingestion.
func (s *PostgresStore) GetConversationByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Conversation, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, contact_phone, contact_name,
		       assigned_agent_id, status
		FROM conversations
		WHERE tenant_id = $1 AND contact_phone = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	conv := &models.Conversation{}
	err := s.getDB().QueryRowContext(ctx, query, tenantID, phone).Scan(
		&conv.ID, &conv.CreatedAt, &conv.UpdatedAt, &conv.TenantID, &conv.ContactPhone,
		&conv.ContactName, &conv.AssignedAgentID, &conv.Status,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return conv, err
}

// ListConversations lists a tenant's conversations newest-activity first.
// When agentID is set only conversations assigned to that agent are
// returned.
func (s *PostgresStore) ListConversations(ctx context.Context, tenantID uuid.UUID, agentID *uuid.UUID, limit int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, updated_at, tenant_id, contact_phone, contact_name,
		       assigned_agent_id, status
		FROM conversations
		WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if agentID != nil {
		query += ` AND assigned_agent_id = $2 ORDER BY updated_at DESC LIMIT $3`
		args = append(args, *agentID, limit)
	} else {
		query += ` ORDER BY updated_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(
			&conv.ID, &conv.CreatedAt, &conv.UpdatedAt, &conv.TenantID, &conv.ContactPhone,
			&conv.ContactName, &conv.AssignedAgentID, &conv.Status,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

// TouchConversation bumps a conversation's updated_at to now
func (s *PostgresStore) TouchConversation(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ========== Message methods ==========

// CreateMessage appends a message to a conversation
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Status == "" {
		msg.Status = "sent"
	}

	query := `
		INSERT INTO messages (id, conversation_id, role, content, timestamp, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Timestamp, msg.Status,
	)
	return err
}

// ListMessages lists a conversation's messages oldest first
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, conversation_id, role, content, timestamp, status
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecentMessages returns the last n messages of a conversation in
// ascending timestamp order. This bounds the context window fed to the AI.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, n int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, timestamp, status
		FROM (
			SELECT id, conversation_id, role, content, timestamp, status
			FROM messages
			WHERE conversation_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp`

	rows, err := s.getDB().QueryContext(ctx, query, conversationID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var msgs []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Timestamp, &msg.Status,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// ========== Chatbot methods ==========

// CreateChatbot creates a new chatbot
func (s *PostgresStore) CreateChatbot(ctx context.Context, bot *models.Chatbot) error {
	if bot.ID == uuid.Nil {
		bot.ID = uuid.New()
	}
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO chatbots (id, created_at, tenant_id, name, system_prompt, keywords, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.getDB().ExecContext(ctx, query,
		bot.ID, bot.CreatedAt, bot.TenantID, bot.Name, bot.SystemPrompt,
		bot.Keywords, bot.Enabled,
	)
	return err
}

// ListChatbots lists a tenant's chatbots
func (s *PostgresStore) ListChatbots(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Chatbot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, tenant_id, name, system_prompt, keywords, enabled
		FROM chatbots
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Chatbot
	for rows.Next() {
		bot := &models.Chatbot{}
		if err := rows.Scan(
			&bot.ID, &bot.CreatedAt, &bot.TenantID, &bot.Name, &bot.SystemPrompt,
			&bot.Keywords, &bot.Enabled,
		); err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}

	return bots, rows.Err()
}

// GetEnabledChatbot returns a tenant's first enabled chatbot in storage
// order. Which bot answers when several are enabled is not defined beyond
// that.
func (s *PostgresStore) GetEnabledChatbot(ctx context.Context, tenantID uuid.UUID) (*models.Chatbot, error) {
	query := `
		SELECT id, created_at, tenant_id, name, system_prompt, keywords, enabled
		FROM chatbots
		WHERE tenant_id = $1 AND enabled = TRUE
		ORDER BY created_at
		LIMIT 1`

	bot := &models.Chatbot{}
	err := s.getDB().QueryRowContext(ctx, query, tenantID).Scan(
		&bot.ID, &bot.CreatedAt, &bot.TenantID, &bot.Name, &bot.SystemPrompt,
		&bot.Keywords, &bot.Enabled,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return bot, err
}
