package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Transactions are no-ops; every write is applied immediately.
type MemoryStore struct {
	mu sync.RWMutex

	users       []*models.User
	tenants     []*models.Tenant
	permissions []*models.UserPermission
	convs       []*models.Conversation
	messages    []*models.Message
	chatbots    []*models.Chatbot
	contacts    []*models.Contact
	campaigns   []*models.Campaign
	templates   []*models.MessageTemplate
	waAccounts  []*models.WhatsAppAccount
	metaConfigs []*models.MetaConfig
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }

// BeginTx implements Store. Memory writes are immediate, so the "transaction"
// is the store itself.
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) { return s, nil }

// Commit implements Store
func (s *MemoryStore) Commit() error { return nil }

// Rollback implements Store
func (s *MemoryStore) Rollback() error { return nil }

func capLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// ========== User methods ==========

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicateKey
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == user.ID {
			user.UpdatedAt = time.Now()
			cp := *user
			s.users[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context, tenantID *uuid.UUID, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.User
	for _, u := range s.users {
		if tenantID != nil && (u.TenantID == nil || *u.TenantID != *tenantID) {
			continue
		}
		cp := *u
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ========== Tenant methods ==========

func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	if tenant.PrimaryColor == "" {
		tenant.PrimaryColor = models.DefaultPrimaryColor
	}
	if tenant.Status == "" {
		tenant.Status = "active"
	}

	cp := *tenant
	s.tenants = append(s.tenants, &cp)
	return nil
}

func (s *MemoryStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTenants(ctx context.Context, limit int) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.Tenant
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ========== User permission methods ==========

func (s *MemoryStore) UpsertUserPermission(ctx context.Context, perm *models.UserPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	if perm.CreatedAt.IsZero() {
		perm.CreatedAt = time.Now()
	}

	for i, p := range s.permissions {
		if p.UserID == perm.UserID {
			cp := *perm
			s.permissions[i] = &cp
			return nil
		}
	}

	cp := *perm
	s.permissions = append(s.permissions, &cp)
	return nil
}

func (s *MemoryStore) GetUserPermission(ctx context.Context, userID uuid.UUID) (*models.UserPermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteUserPermission(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.permissions {
		if p.UserID == userID {
			s.permissions = append(s.permissions[:i], s.permissions[i+1:]...)
			return nil
		}
	}
	return nil
}

// ========== Conversation methods ==========

func (s *MemoryStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.Status == "" {
		conv.Status = models.ConversationStatusOpen
	}

	cp := *conv
	s.convs = append(s.convs, &cp)
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.convs {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetConversationByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Conversation
	for _, c := range s.convs {
		if c.TenantID == tenantID && c.ContactPhone == phone {
			if found == nil || c.UpdatedAt.After(found.UpdatedAt) {
				found = c
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}

	cp := *found
	return &cp, nil
}

func (s *MemoryStore) ListConversations(ctx context.Context, tenantID uuid.UUID, agentID *uuid.UUID, limit int) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.Conversation
	for _, c := range s.convs {
		if c.TenantID != tenantID {
			continue
		}
		if agentID != nil && (c.AssignedAgentID == nil || *c.AssignedAgentID != *agentID) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TouchConversation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.convs {
		if c.ID == id {
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// ========== Message methods ==========

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Status == "" {
		msg.Status = "sent"
	}

	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	msgs := s.conversationMessages(conversationID)

	limit = capLimit(limit)
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *MemoryStore) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, n int) ([]*models.Message, error) {
	msgs := s.conversationMessages(conversationID)

	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

func (s *MemoryStore) conversationMessages(conversationID uuid.UUID) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			cp := *m
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// ========== Chatbot methods ==========

func (s *MemoryStore) CreateChatbot(ctx context.Context, bot *models.Chatbot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bot.ID == uuid.Nil {
		bot.ID = uuid.New()
	}
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now()
	}

	cp := *bot
	s.chatbots = append(s.chatbots, &cp)
	return nil
}

func (s *MemoryStore) ListChatbots(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.Chatbot
	for _, b := range s.chatbots {
		if b.TenantID != tenantID {
			continue
		}
		cp := *b
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) GetEnabledChatbot(ctx context.Context, tenantID uuid.UUID) (*models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.chatbots {
		if b.TenantID == tenantID && b.Enabled {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ========== Contact methods ==========

func (s *MemoryStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}

	cp := *contact
	s.contacts = append(s.contacts, &cp)
	return nil
}

func (s *MemoryStore) ListContacts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.Contact
	for _, c := range s.contacts {
		if c.TenantID != tenantID {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ========== Campaign methods ==========

func (s *MemoryStore) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now()
	}
	if campaign.Status == "" {
		campaign.Status = "draft"
	}

	cp := *campaign
	s.campaigns = append(s.campaigns, &cp)
	return nil
}

func (s *MemoryStore) ListCampaigns(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.Campaign
	for _, c := range s.campaigns {
		if c.TenantID != tenantID {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ========== Template methods ==========

func (s *MemoryStore) CreateTemplate(ctx context.Context, tpl *models.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	cp := *tpl
	s.templates = append(s.templates, &cp)
	return nil
}

func (s *MemoryStore) GetTemplate(ctx context.Context, id uuid.UUID) (*models.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.templates {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.MessageTemplate
	for _, t := range s.templates {
		if t.TenantID != tenantID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateTemplate(ctx context.Context, tpl *models.MessageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.templates {
		if t.ID == tpl.ID {
			t.Status = tpl.Status
			t.MetaTemplateID = tpl.MetaTemplateID
			return nil
		}
	}
	return ErrNotFound
}

// ========== WhatsApp account methods ==========

func (s *MemoryStore) CreateWhatsAppAccount(ctx context.Context, account *models.WhatsAppAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.Status == "" {
		account.Status = "active"
	}

	cp := *account
	s.waAccounts = append(s.waAccounts, &cp)
	return nil
}

func (s *MemoryStore) ListWhatsAppAccounts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.WhatsAppAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = capLimit(limit)
	var out []*models.WhatsAppAccount
	for _, a := range s.waAccounts {
		if a.TenantID != tenantID {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ========== Meta config methods ==========

func (s *MemoryStore) UpsertMetaConfig(ctx context.Context, cfg *models.MetaConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	for i, c := range s.metaConfigs {
		if c.TenantID == cfg.TenantID {
			cp := *cfg
			s.metaConfigs[i] = &cp
			return nil
		}
	}

	cp := *cfg
	s.metaConfigs = append(s.metaConfigs, &cp)
	return nil
}

func (s *MemoryStore) GetMetaConfig(ctx context.Context, tenantID uuid.UUID) (*models.MetaConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.metaConfigs {
		if c.TenantID == tenantID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindMetaConfigByVerifyToken(ctx context.Context, token string) (*models.MetaConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.metaConfigs {
		if c.WebhookVerifyToken == token {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindMetaConfigByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.MetaConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.metaConfigs {
		if c.PhoneNumberID == phoneNumberID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ========== Analytics counts ==========

func (s *MemoryStore) CountConversations(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.convs {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}

func (s *MemoryStore) CountContacts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.contacts {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountCampaigns(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.campaigns {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}
