package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name TEXT NOT NULL,
		logo_url TEXT NOT NULL DEFAULT '',
		primary_color TEXT NOT NULL DEFAULT '#0B5ED7',
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		tenant_id UUID REFERENCES tenants(id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		user_id UUID NOT NULL UNIQUE REFERENCES users(id),
		tenant_id UUID NOT NULL,
		permissions JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		contact_phone TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		assigned_agent_id UUID,
		status TEXT NOT NULL DEFAULT 'open'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_tenant ON conversations(tenant_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'sent'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
	`CREATE TABLE IF NOT EXISTS chatbots (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		name TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		keywords JSONB NOT NULL DEFAULT '[]',
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		phone_number TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		tags JSONB NOT NULL DEFAULT '[]',
		opted_in BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		name TEXT NOT NULL,
		message_template TEXT NOT NULL,
		target_contacts JSONB NOT NULL DEFAULT '[]',
		scheduled_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'draft',
		sent_count INTEGER NOT NULL DEFAULT 0,
		delivered_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS message_templates (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'en_US',
		header_type TEXT NOT NULL DEFAULT '',
		header_content TEXT NOT NULL DEFAULT '',
		body_text TEXT NOT NULL,
		footer_text TEXT NOT NULL DEFAULT '',
		buttons JSONB NOT NULL DEFAULT '{}',
		variables JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'PENDING',
		meta_template_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS whatsapp_accounts (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL,
		phone_number TEXT NOT NULL,
		display_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS meta_configs (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		tenant_id UUID NOT NULL UNIQUE,
		phone_number_id TEXT NOT NULL,
		business_account_id TEXT NOT NULL,
		access_token TEXT NOT NULL,
		webhook_verify_token TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	)`,
}

// Migrate creates missing tables and indexes
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
