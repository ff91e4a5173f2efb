package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/ai"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

// fakeCompleter records the last request and returns a canned reply
type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	turns  []ai.Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []ai.Turn) (string, error) {
	f.prompt = systemPrompt
	f.turns = turns
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testUser(tenantID *uuid.UUID, role models.Role) *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "user@test",
		Role:     role,
		TenantID: tenantID,
	}
}

func TestCreateConversationRequiresTenant(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), nil, 0)

	super := testUser(nil, models.RoleSuperAdmin)
	if _, err := svc.CreateConversation(context.Background(), super, "+628111", "Budi"); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestAppendMessageWithoutAI(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, &fakeCompleter{reply: "hi"}, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	conv, err := svc.CreateConversation(ctx, user, "+628111", "Budi")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.AppendMessage(ctx, user, conv.ID, "hello", false)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if result.AIResponse != nil {
		t.Error("AI response generated without use_ai")
	}
	if result.UserMessage.Role != models.MessageRoleUser {
		t.Errorf("user message role %q", result.UserMessage.Role)
	}

	msgs, err := svc.GetMessages(ctx, user, conv.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
}

func TestAppendMessageNoEnabledChatbot(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, &fakeCompleter{reply: "hi"}, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	// A disabled bot must not answer
	if err := store.CreateChatbot(ctx, &models.Chatbot{TenantID: tenant, Name: "off", SystemPrompt: "x", Enabled: false}); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	conv, _ := svc.CreateConversation(ctx, user, "+628111", "Budi")
	result, err := svc.AppendMessage(ctx, user, conv.ID, "hello", true)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if result.AIResponse != nil {
		t.Fatalf("expected no AI response without an enabled bot, got %q", *result.AIResponse)
	}
}

func TestAppendMessageGeneratesReply(t *testing.T) {
	store := storage.NewMemoryStore()
	completer := &fakeCompleter{reply: "How can I help?"}
	svc := NewService(store, completer, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	if err := store.CreateChatbot(ctx, &models.Chatbot{TenantID: tenant, Name: "support", SystemPrompt: "Be helpful", Enabled: true}); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	conv, _ := svc.CreateConversation(ctx, user, "+628111", "Budi")
	result, err := svc.AppendMessage(ctx, user, conv.ID, "hello", true)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if result.AIResponse == nil || *result.AIResponse != "How can I help?" {
		t.Fatalf("unexpected AI response %v", result.AIResponse)
	}
	if completer.prompt != "Be helpful" {
		t.Errorf("system prompt %q", completer.prompt)
	}
	if len(completer.turns) == 0 || completer.turns[len(completer.turns)-1].Content != "hello" {
		t.Error("just-appended message missing from AI context")
	}

	msgs, _ := svc.GetMessages(ctx, user, conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(msgs))
	}
	if msgs[1].Role != models.MessageRoleAssistant {
		t.Errorf("second message role %q", msgs[1].Role)
	}
}

func TestAppendMessageAIFailureReturnsPlaceholder(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, &fakeCompleter{err: errors.New("boom")}, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	if err := store.CreateChatbot(ctx, &models.Chatbot{TenantID: tenant, Name: "support", SystemPrompt: "x", Enabled: true}); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	conv, _ := svc.CreateConversation(ctx, user, "+628111", "Budi")
	result, err := svc.AppendMessage(ctx, user, conv.ID, "hello", true)
	if err != nil {
		t.Fatalf("append should not fail on AI error: %v", err)
	}

	if result.AIResponse == nil || *result.AIResponse != "AI response error: boom" {
		t.Fatalf("expected placeholder, got %v", result.AIResponse)
	}

	// Only the human message is stored
	msgs, _ := svc.GetMessages(ctx, user, conv.ID)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
}

func TestAppendMessageNormalizesHistoryRoles(t *testing.T) {
	store := storage.NewMemoryStore()
	completer := &fakeCompleter{reply: "ok"}
	svc := NewService(store, completer, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	if err := store.CreateChatbot(ctx, &models.Chatbot{TenantID: tenant, Name: "support", SystemPrompt: "x", Enabled: true}); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	conv, _ := svc.CreateConversation(ctx, user, "+628111", "Budi")

	if err := store.CreateMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		Role:           "system",
		Content:        "legacy entry",
		Timestamp:      time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, user, conv.ID, "hello", true); err != nil {
		t.Fatalf("append: %v", err)
	}

	for _, turn := range completer.turns {
		if turn.Role != models.MessageRoleUser && turn.Role != models.MessageRoleAssistant {
			t.Fatalf("unnormalized role %q reached the AI context", turn.Role)
		}
	}
}

func TestAppendMessageCrossTenantDenied(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	owner := testUser(&tenantA, models.RoleTenantAdmin)
	intruder := testUser(&tenantB, models.RoleTenantAdmin)

	conv, _ := svc.CreateConversation(ctx, owner, "+628111", "Budi")

	if _, err := svc.AppendMessage(ctx, intruder, conv.ID, "hi", false); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.GetMessages(ctx, intruder, conv.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied on read, got %v", err)
	}
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), nil, 0)

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	if _, err := svc.AppendMessage(context.Background(), user, uuid.New(), "hi", false); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestAppendMessageTouchesConversation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	tenant := uuid.New()
	user := testUser(&tenant, models.RoleTenantAdmin)

	conv, _ := svc.CreateConversation(ctx, user, "+628111", "Budi")
	created := conv.UpdatedAt

	time.Sleep(5 * time.Millisecond)

	if _, err := svc.AppendMessage(ctx, user, conv.ID, "hi", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	after, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !after.UpdatedAt.After(created) {
		t.Fatal("append did not bump the conversation's updated_at")
	}
}

func TestListConversationsAgentFilter(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	tenant := uuid.New()
	admin := testUser(&tenant, models.RoleTenantAdmin)
	agent := testUser(&tenant, models.RoleAgent)

	if _, err := svc.CreateConversation(ctx, admin, "+628111", "Unassigned"); err != nil {
		t.Fatalf("create: %v", err)
	}

	assigned := &models.Conversation{
		TenantID:        tenant,
		ContactPhone:    "+628222",
		AssignedAgentID: &agent.ID,
		Status:          models.ConversationStatusOpen,
	}
	if err := store.CreateConversation(ctx, assigned); err != nil {
		t.Fatalf("create assigned: %v", err)
	}

	all, err := svc.ListConversations(ctx, admin)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin should see 2 conversations, got %d", len(all))
	}

	mine, err := svc.ListConversations(ctx, agent)
	if err != nil {
		t.Fatalf("list as agent: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != assigned.ID {
		t.Fatalf("agent should see only assigned conversations, got %d", len(mine))
	}
}

func TestListConversationsRequiresTenant(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), nil, 0)

	super := testUser(nil, models.RoleSuperAdmin)
	if _, err := svc.ListConversations(context.Background(), super); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}
