package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// ========== Contact methods ==========

// CreateContact creates a new contact
func (s *PostgresStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO contacts (id, created_at, tenant_id, phone_number, name, email, tags, opted_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		contact.ID, contact.CreatedAt, contact.TenantID, contact.PhoneNumber,
		contact.Name, contact.Email, contact.Tags, contact.OptedIn,
	)
	return err
}

// ListContacts lists a tenant's contacts
func (s *PostgresStore) ListContacts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Contact, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, tenant_id, phone_number, name, email, tags, opted_in
		FROM contacts
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact := &models.Contact{}
		if err := rows.Scan(
			&contact.ID, &contact.CreatedAt, &contact.TenantID, &contact.PhoneNumber,
			&contact.Name, &contact.Email, &contact.Tags, &contact.OptedIn,
		); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

// ========== Campaign methods ==========

// CreateCampaign creates a new campaign
func (s *PostgresStore) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now()
	}
	if campaign.Status == "" {
		campaign.Status = "draft"
	}

	query := `
		INSERT INTO campaigns (
			id, created_at, tenant_id, name, message_template, target_contacts,
			scheduled_at, status, sent_count, delivered_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.getDB().ExecContext(ctx, query,
		campaign.ID, campaign.CreatedAt, campaign.TenantID, campaign.Name,
		campaign.MessageTemplate, campaign.TargetContacts, campaign.ScheduledAt,
		campaign.Status, campaign.SentCount, campaign.DeliveredCount,
	)
	return err
}

// ListCampaigns lists a tenant's campaigns
func (s *PostgresStore) ListCampaigns(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, tenant_id, name, message_template, target_contacts,
		       scheduled_at, status, sent_count, delivered_count
		FROM campaigns
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign := &models.Campaign{}
		if err := rows.Scan(
			&campaign.ID, &campaign.CreatedAt, &campaign.TenantID, &campaign.Name,
			&campaign.MessageTemplate, &campaign.TargetContacts, &campaign.ScheduledAt,
			&campaign.Status, &campaign.SentCount, &campaign.DeliveredCount,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, rows.Err()
}

// ========== Template methods ==========

// CreateTemplate creates a new message template
func (s *PostgresStore) CreateTemplate(ctx context.Context, tpl *models.MessageTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now()
	}
	if tpl.Language == "" {
		tpl.Language = "en_US"
	}
	if tpl.Status == "" {
		tpl.Status = "PENDING"
	}

	query := `
		INSERT INTO message_templates (
			id, created_at, tenant_id, name, category, language, header_type,
			header_content, body_text, footer_text, buttons, variables, status,
			meta_template_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.getDB().ExecContext(ctx, query,
		tpl.ID, tpl.CreatedAt, tpl.TenantID, tpl.Name, tpl.Category, tpl.Language,
		tpl.HeaderType, tpl.HeaderContent, tpl.BodyText, tpl.FooterText,
		tpl.Buttons, tpl.VarNames, tpl.Status, tpl.MetaTemplateID,
	)
	return err
}

// GetTemplate gets a message template by id
func (s *PostgresStore) GetTemplate(ctx context.Context, id uuid.UUID) (*models.MessageTemplate, error) {
	query := `
		SELECT id, created_at, tenant_id, name, category, language, header_type,
		       header_content, body_text, footer_text, buttons, variables, status,
		       meta_template_id
		FROM message_templates
		WHERE id = $1`

	tpl := &models.MessageTemplate{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&tpl.ID, &tpl.CreatedAt, &tpl.TenantID, &tpl.Name, &tpl.Category,
		&tpl.Language, &tpl.HeaderType, &tpl.HeaderContent, &tpl.BodyText,
		&tpl.FooterText, &tpl.Buttons, &tpl.VarNames, &tpl.Status,
		&tpl.MetaTemplateID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return tpl, nil
}

// ListTemplates lists a tenant's message templates
func (s *PostgresStore) ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.MessageTemplate, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, tenant_id, name, category, language, header_type,
		       header_content, body_text, footer_text, buttons, variables, status,
		       meta_template_id
		FROM message_templates
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tpls []*models.MessageTemplate
	for rows.Next() {
		tpl := &models.MessageTemplate{}
		if err := rows.Scan(
			&tpl.ID, &tpl.CreatedAt, &tpl.TenantID, &tpl.Name, &tpl.Category,
			&tpl.Language, &tpl.HeaderType, &tpl.HeaderContent, &tpl.BodyText,
			&tpl.FooterText, &tpl.Buttons, &tpl.VarNames, &tpl.Status,
			&tpl.MetaTemplateID,
		); err != nil {
			return nil, err
		}
		tpls = append(tpls, tpl)
	}

	return tpls, rows.Err()
}

// UpdateTemplate updates a template's review status and Meta template id
func (s *PostgresStore) UpdateTemplate(ctx context.Context, tpl *models.MessageTemplate) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE message_templates SET status = $2, meta_template_id = $3 WHERE id = $1`,
		tpl.ID, tpl.Status, tpl.MetaTemplateID,
	)
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

// ========== WhatsApp account methods ==========

// CreateWhatsAppAccount creates a new WhatsApp account
func (s *PostgresStore) CreateWhatsAppAccount(ctx context.Context, account *models.WhatsAppAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.Status == "" {
		account.Status = "active"
	}

	query := `
		INSERT INTO whatsapp_accounts (id, created_at, tenant_id, phone_number, display_name, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		account.ID, account.CreatedAt, account.TenantID, account.PhoneNumber,
		account.DisplayName, account.Status,
	)
	return err
}

// ListWhatsAppAccounts lists a tenant's WhatsApp accounts
func (s *PostgresStore) ListWhatsAppAccounts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.WhatsAppAccount, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, tenant_id, phone_number, display_name, status
		FROM whatsapp_accounts
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.WhatsAppAccount
	for rows.Next() {
		account := &models.WhatsAppAccount{}
		if err := rows.Scan(
			&account.ID, &account.CreatedAt, &account.TenantID, &account.PhoneNumber,
			&account.DisplayName, &account.Status,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// ========== Meta config methods ==========

// UpsertMetaConfig creates or replaces a tenant's Meta Cloud API config
func (s *PostgresStore) UpsertMetaConfig(ctx context.Context, cfg *models.MetaConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}

	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	if cfg.Status == "" {
		cfg.Status = "active"
	}

	query := `
		INSERT INTO meta_configs (
			id, created_at, updated_at, tenant_id, phone_number_id,
			business_account_id, access_token, webhook_verify_token, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			phone_number_id = EXCLUDED.phone_number_id,
			business_account_id = EXCLUDED.business_account_id,
			access_token = EXCLUDED.access_token,
			webhook_verify_token = EXCLUDED.webhook_verify_token,
			status = EXCLUDED.status`

	_, err := s.getDB().ExecContext(ctx, query,
		cfg.ID, cfg.CreatedAt, cfg.UpdatedAt, cfg.TenantID, cfg.PhoneNumberID,
		cfg.BusinessAccountID, cfg.AccessToken, cfg.WebhookVerifyToken, cfg.Status,
	)
	return err
}

// GetMetaConfig gets a tenant's Meta Cloud API config
func (s *PostgresStore) GetMetaConfig(ctx context.Context, tenantID uuid.UUID) (*models.MetaConfig, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, phone_number_id,
		       business_account_id, access_token, webhook_verify_token, status
		FROM meta_configs
		WHERE tenant_id = $1`

	return s.scanMetaConfig(s.getDB().QueryRowContext(ctx, query, tenantID))
}

// FindMetaConfigByVerifyToken finds the config whose webhook verify token
// matches. Used by the Meta webhook verification handshake.
func (s *PostgresStore) FindMetaConfigByVerifyToken(ctx context.Context, token string) (*models.MetaConfig, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, phone_number_id,
		       business_account_id, access_token, webhook_verify_token, status
		FROM meta_configs
		WHERE webhook_verify_token = $1
		LIMIT 1`

	return s.scanMetaConfig(s.getDB().QueryRowContext(ctx, query, token))
}

// FindMetaConfigByPhoneNumberID resolves the tenant owning a Meta phone
// number. Used to attribute inbound webhook messages.
func (s *PostgresStore) FindMetaConfigByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.MetaConfig, error) {
	query := `
		SELECT id, created_at, updated_at, tenant_id, phone_number_id,
		       business_account_id, access_token, webhook_verify_token, status
		FROM meta_configs
		WHERE phone_number_id = $1
		LIMIT 1`

	return s.scanMetaConfig(s.getDB().QueryRowContext(ctx, query, phoneNumberID))
}

func (s *PostgresStore) scanMetaConfig(row *sql.Row) (*models.MetaConfig, error) {
	cfg := &models.MetaConfig{}
	err := row.Scan(
		&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt, &cfg.TenantID, &cfg.PhoneNumberID,
		&cfg.BusinessAccountID, &cfg.AccessToken, &cfg.WebhookVerifyToken, &cfg.Status,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return cfg, err
}

// ========== Analytics counts ==========

// CountConversations counts a tenant's conversations
func (s *PostgresStore) CountConversations(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

// CountMessages counts all stored messages
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// CountContacts counts a tenant's contacts
func (s *PostgresStore) CountContacts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

// CountCampaigns counts a tenant's campaigns
func (s *PostgresStore) CountCampaigns(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}
