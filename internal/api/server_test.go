package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bantconfirm/whatsapp-platform/internal/auth"
	"github.com/bantconfirm/whatsapp-platform/internal/chat"
	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/meta"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

func newTestServer() (*RESTServer, *storage.MemoryStore) {
	cfg := &config.Config{}
	cfg.Server.Name = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenTTL = time.Hour
	cfg.Meta.BaseURL = "http://meta.invalid"
	cfg.Meta.Timeout = time.Second

	store := storage.NewMemoryStore()
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	authService := auth.NewService(store, jwtManager)
	chatService := chat.NewService(store, nil, 0)
	metaClient := meta.NewClient(&cfg.Meta, nil)

	return NewRESTServer(cfg, store, authService, chatService, metaClient, nil, Options{}), store
}

func doJSON(t *testing.T, s *RESTServer, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func signupTenantAdmin(t *testing.T, s *RESTServer, email, tenant string) (token string) {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "secret123",
		"name":        "Admin",
		"tenant_name": tenant,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}

	var session struct {
		Token string `json:"token"`
	}
	decode(t, rec, &session)
	return session.Token
}

func TestSignupAndLogin(t *testing.T) {
	s, _ := newTestServer()

	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")
	if token == "" {
		t.Fatal("expected a token from signup")
	}

	// Duplicate email rejected
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       "owner@acme.test",
		"password":    "secret123",
		"name":        "Clone",
		"tenant_name": "Other",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup status %d", rec.Code)
	}

	// Wrong password rejected
	rec = doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@acme.test",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@acme.test",
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/api/users/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/users/me", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status %d", rec.Code)
	}

	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")
	rec = doJSON(t, s, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", rec.Code, rec.Body.String())
	}

	var me struct {
		Email string `json:"email"`
	}
	decode(t, rec, &me)
	if me.Email != "owner@acme.test" {
		t.Errorf("me returned %q", me.Email)
	}
}

func TestConversationFlow(t *testing.T) {
	s, _ := newTestServer()
	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/conversations", token, map[string]string{
		"contact_phone": "+628111",
		"contact_name":  "Budi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create conversation status %d: %s", rec.Code, rec.Body.String())
	}

	var conv struct {
		ID string `json:"id"`
	}
	decode(t, rec, &conv)

	rec = doJSON(t, s, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", token, map[string]interface{}{
		"content": "hello",
		"use_ai":  false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("append status %d: %s", rec.Code, rec.Body.String())
	}

	var appended struct {
		AIResponse *string `json:"ai_response"`
	}
	decode(t, rec, &appended)
	if appended.AIResponse != nil {
		t.Error("unexpected AI response")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get messages status %d", rec.Code)
	}

	var msgs struct {
		Total int `json:"total"`
	}
	decode(t, rec, &msgs)
	if msgs.Total != 1 {
		t.Errorf("expected 1 message, got %d", msgs.Total)
	}
}

func TestAgentDeniedCampaigns(t *testing.T) {
	s, _ := newTestServer()
	adminToken := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/users", adminToken, map[string]string{
		"email": "agent@acme.test",
		"name":  "Agent",
		"role":  "agent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite status %d: %s", rec.Code, rec.Body.String())
	}

	var invite struct {
		TempPassword string `json:"temp_password"`
	}
	decode(t, rec, &invite)

	rec = doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "agent@acme.test",
		"password": invite.TempPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("agent login status %d", rec.Code)
	}

	var session struct {
		Token string `json:"token"`
	}
	decode(t, rec, &session)

	rec = doJSON(t, s, http.MethodGet, "/api/campaigns", session.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("agent campaigns status %d, want 403", rec.Code)
	}

	// The agent's own lane still works
	rec = doJSON(t, s, http.MethodGet, "/api/conversations", session.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("agent conversations status %d", rec.Code)
	}
}

func TestMetaConfigNeverEchoesToken(t *testing.T) {
	s, _ := newTestServer()
	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/meta/config", token, map[string]string{
		"phone_number_id":      "1234567890",
		"business_account_id":  "9876543210",
		"access_token":         "EAAB-very-secret",
		"webhook_verify_token": "verify-me",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert config status %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "EAAB-very-secret") {
		t.Fatal("access token echoed in upsert response")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/meta/config", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get config status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "EAAB-very-secret") {
		t.Fatal("access token echoed in get response")
	}
}

func TestWebhookVerification(t *testing.T) {
	s, _ := newTestServer()
	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	doJSON(t, s, http.MethodPost, "/api/meta/config", token, map[string]string{
		"phone_number_id":      "1234567890",
		"business_account_id":  "9876543210",
		"access_token":         "secret",
		"webhook_verify_token": "verify-me",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verification status %d", rec.Code)
	}
	if rec.Body.String() != "12345" {
		t.Errorf("challenge echo %q", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bad token verification status %d", rec.Code)
	}
}

func TestWebhookReceiveThreadsConversation(t *testing.T) {
	s, store := newTestServer()
	token := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	doJSON(t, s, http.MethodPost, "/api/meta/config", token, map[string]string{
		"phone_number_id":      "1234567890",
		"business_account_id":  "9876543210",
		"access_token":         "secret",
		"webhook_verify_token": "verify-me",
	})

	payload := map[string]interface{}{
		"entry": []map[string]interface{}{{
			"changes": []map[string]interface{}{{
				"value": map[string]interface{}{
					"metadata": map[string]string{"phone_number_id": "1234567890"},
					"contacts": []map[string]interface{}{{
						"wa_id":   "628111",
						"profile": map[string]string{"name": "Budi"},
					}},
					"messages": []map[string]interface{}{{
						"from": "628111",
						"type": "text",
						"text": map[string]string{"body": "halo"},
					}},
				},
			}},
		}},
	}

	rec := doJSON(t, s, http.MethodPost, "/api/whatsapp/webhook", "", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status %d: %s", rec.Code, rec.Body.String())
	}

	ctx := context.Background()

	cfg, err := store.FindMetaConfigByVerifyToken(ctx, "verify-me")
	if err != nil {
		t.Fatalf("config lookup: %v", err)
	}

	conv, err := store.GetConversationByPhone(ctx, cfg.TenantID, "628111")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if conv.ContactName != "Budi" {
		t.Errorf("contact name %q", conv.ContactName)
	}

	msgs, err := store.ListMessages(ctx, conv.ID, 10)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected 1 inbound message, got %d (err %v)", len(msgs), err)
	}
	if msgs[0].Content != "halo" || msgs[0].Role != "user" {
		t.Errorf("stored message %q role %q", msgs[0].Content, msgs[0].Role)
	}

	// Unknown phone number id is swallowed, still 200
	payload["entry"].([]map[string]interface{})[0]["changes"].([]map[string]interface{})[0]["value"].(map[string]interface{})["metadata"] = map[string]string{"phone_number_id": "nope"}
	rec = doJSON(t, s, http.MethodPost, "/api/whatsapp/webhook", "", payload)
	if rec.Code != http.StatusOK {
		t.Errorf("webhook with unknown number status %d", rec.Code)
	}
}

func TestTenantDirectoryGates(t *testing.T) {
	s, _ := newTestServer()
	adminToken := signupTenantAdmin(t, s, "owner@acme.test", "Acme")

	// Tenant admin cannot list the tenant directory
	rec := doJSON(t, s, http.MethodGet, "/api/tenants", adminToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("tenant_admin listing tenants status %d", rec.Code)
	}

	// Super admin can
	rec = doJSON(t, s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "root@platform.test",
		"password": "secret123",
		"name":     "Root",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin signup status %d", rec.Code)
	}
	var session struct {
		Token string `json:"token"`
	}
	decode(t, rec, &session)

	rec = doJSON(t, s, http.MethodGet, "/api/tenants", session.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin listing tenants status %d", rec.Code)
	}
}
