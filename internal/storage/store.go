package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// DefaultListLimit caps unpaginated list queries. Callers expecting more
// rows hit a known limitation, not a bug.
const DefaultListLimit = 1000

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, tenantID *uuid.UUID, limit int) ([]*models.User, error)

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context, limit int) ([]*models.Tenant, error)

	// User permission override methods
	UpsertUserPermission(ctx context.Context, perm *models.UserPermission) error
	GetUserPermission(ctx context.Context, userID uuid.UUID) (*models.UserPermission, error)
	DeleteUserPermission(ctx context.Context, userID uuid.UUID) error

	// Conversation methods
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetConversationByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Conversation, error)
	ListConversations(ctx context.Context, tenantID uuid.UUID, agentID *uuid.UUID, limit int) ([]*models.Conversation, error)
	TouchConversation(ctx context.Context, id uuid.UUID) error

	// Message methods (append-only)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, n int) ([]*models.Message, error)

	// Chatbot methods
	CreateChatbot(ctx context.Context, bot *models.Chatbot) error
	ListChatbots(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Chatbot, error)
	GetEnabledChatbot(ctx context.Context, tenantID uuid.UUID) (*models.Chatbot, error)

	// Contact methods
	CreateContact(ctx context.Context, contact *models.Contact) error
	ListContacts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Contact, error)

	// Campaign methods
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	ListCampaigns(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Campaign, error)

	// Template methods
	CreateTemplate(ctx context.Context, tpl *models.MessageTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.MessageTemplate, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.MessageTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *models.MessageTemplate) error

	// WhatsApp account methods
	CreateWhatsAppAccount(ctx context.Context, account *models.WhatsAppAccount) error
	ListWhatsAppAccounts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.WhatsAppAccount, error)

	// Meta Cloud API config methods
	UpsertMetaConfig(ctx context.Context, cfg *models.MetaConfig) error
	GetMetaConfig(ctx context.Context, tenantID uuid.UUID) (*models.MetaConfig, error)
	FindMetaConfigByVerifyToken(ctx context.Context, token string) (*models.MetaConfig, error)
	FindMetaConfigByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.MetaConfig, error)

	// Analytics counts
	CountConversations(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	CountContacts(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountCampaigns(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Close the store
	Close() error
}
