package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
)

func newTestService() (*Service, storage.Store) {
	store := storage.NewMemoryStore()
	jwtManager := NewJWTManager(&config.JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	})
	return NewService(store, jwtManager), store
}

func TestSignupCreatesTenantAdmin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "owner@acme.test", "secret123", "Owner", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if session.Token == "" {
		t.Error("expected a session token")
	}
	if session.User.Role != models.RoleTenantAdmin {
		t.Errorf("expected tenant_admin, got %s", session.User.Role)
	}
	if session.User.TenantID == nil {
		t.Fatal("expected a tenant to be created")
	}

	tenant, err := store.GetTenant(ctx, *session.User.TenantID)
	if err != nil {
		t.Fatalf("tenant not stored: %v", err)
	}
	if tenant.Name != "Acme" {
		t.Errorf("tenant name %q", tenant.Name)
	}
}

func TestSignupWithoutTenantIsSuperAdmin(t *testing.T) {
	svc, _ := newTestService()

	session, err := svc.Signup(context.Background(), "root@platform.test", "secret123", "Root", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if session.User.Role != models.RoleSuperAdmin {
		t.Errorf("expected super_admin, got %s", session.User.Role)
	}
	if session.User.TenantID != nil {
		t.Error("super_admin should have no tenant")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "dup@acme.test", "secret123", "First", "Acme"); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, err := svc.Signup(ctx, "dup@acme.test", "other456", "Second", "Other")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "user@acme.test", "secret123", "User", "Acme"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	session, err := svc.Login(ctx, "user@acme.test", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := svc.Verify(ctx, session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.Email != "user@acme.test" {
		t.Errorf("verified wrong user %s", user.Email)
	}
}

func TestLoginUniformError(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "user@acme.test", "secret123", "User", "Acme"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, badPassword := svc.Login(ctx, "user@acme.test", "wrong")
	_, badEmail := svc.Login(ctx, "nobody@acme.test", "secret123")

	if !errors.Is(badPassword, ErrInvalidCredentials) || !errors.Is(badEmail, ErrInvalidCredentials) {
		t.Fatalf("expected uniform ErrInvalidCredentials, got %v / %v", badPassword, badEmail)
	}
}

func TestVerifyReflectsRoleChange(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "user@acme.test", "secret123", "User", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	stored, err := store.GetUser(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	stored.Role = models.RoleViewer
	if err := store.UpdateUser(ctx, stored); err != nil {
		t.Fatalf("update user: %v", err)
	}

	user, err := svc.Verify(ctx, session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.Role != models.RoleViewer {
		t.Fatalf("expected the demoted role on the old token, got %s", user.Role)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	store := storage.NewMemoryStore()
	jwtManager := NewJWTManager(&config.JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: -time.Minute,
	})
	svc := NewService(store, jwtManager)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "user@acme.test", "secret123", "User", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err = svc.Verify(ctx, session.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestInviteUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "admin@acme.test", "secret123", "Admin", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	admin, err := store.GetUser(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}

	invite, err := svc.InviteUser(ctx, admin, "agent@acme.test", "Agent", models.RoleAgent, nil)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if invite.TempPassword == "" {
		t.Fatal("expected a temporary password")
	}
	if invite.User.TenantID == nil || *invite.User.TenantID != *admin.TenantID {
		t.Error("invitee not placed in the inviter's tenant")
	}

	// Temporary password must work for login
	if _, err := svc.Login(ctx, "agent@acme.test", invite.TempPassword); err != nil {
		t.Fatalf("login with temp password: %v", err)
	}

	// Role defaults were stored as the override
	override, err := store.GetUserPermission(ctx, invite.User.ID)
	if err != nil {
		t.Fatalf("permission override: %v", err)
	}
	if len(override.Permissions) == 0 {
		t.Error("expected default permissions on the override")
	}
}

func TestInviteRequiresTenantAdmin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "admin@acme.test", "secret123", "Admin", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	admin, _ := store.GetUser(ctx, session.User.ID)

	invite, err := svc.InviteUser(ctx, admin, "agent@acme.test", "Agent", models.RoleAgent, nil)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	agent, _ := store.GetUser(ctx, invite.User.ID)

	if _, err := svc.InviteUser(ctx, agent, "friend@acme.test", "Friend", models.RoleAgent, nil); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for agent inviter, got %v", err)
	}
}

func TestDeleteUserSelfDeletion(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "admin@acme.test", "secret123", "Admin", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	admin, _ := store.GetUser(ctx, session.User.ID)

	if err := svc.DeleteUser(ctx, admin, admin.ID); !errors.Is(err, ErrSelfDeletion) {
		t.Fatalf("expected ErrSelfDeletion, got %v", err)
	}
}

func TestDeleteUserCrossTenantLooksLikeNotFound(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	a, err := svc.Signup(ctx, "admin@a.test", "secret123", "A", "TenantA")
	if err != nil {
		t.Fatalf("signup a: %v", err)
	}
	b, err := svc.Signup(ctx, "admin@b.test", "secret123", "B", "TenantB")
	if err != nil {
		t.Fatalf("signup b: %v", err)
	}

	adminA, _ := store.GetUser(ctx, a.User.ID)
	if err := svc.DeleteUser(ctx, adminA, b.User.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
}

// referentialStore rejects deleting a user while a permission override row
// still references them, the way the foreign key does in Postgres.
type referentialStore struct {
	*storage.MemoryStore
}

func (s *referentialStore) BeginTx(ctx context.Context) (storage.Store, error) { return s, nil }

func (s *referentialStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.MemoryStore.GetUserPermission(ctx, id); err == nil {
		return errors.New(`pq: update or delete on table "users" violates foreign key constraint "user_permissions_user_id_fkey"`)
	}
	return s.MemoryStore.DeleteUser(ctx, id)
}

func TestDeleteUserClearsOverrideBeforeUser(t *testing.T) {
	store := &referentialStore{MemoryStore: storage.NewMemoryStore()}
	jwtManager := NewJWTManager(&config.JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	})
	svc := NewService(store, jwtManager)
	ctx := context.Background()

	session, err := svc.Signup(ctx, "admin@acme.test", "secret123", "Admin", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	admin, _ := store.GetUser(ctx, session.User.ID)

	// Invites always leave an override row behind
	invite, err := svc.InviteUser(ctx, admin, "agent@acme.test", "Agent", models.RoleAgent, nil)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if err := svc.DeleteUser(ctx, admin, invite.User.ID); err != nil {
		t.Fatalf("delete against a store enforcing the user reference: %v", err)
	}

	if _, err := store.GetUser(ctx, invite.User.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("user still present after deletion")
	}
}

func TestDeleteUserRemovesOverride(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, "admin@acme.test", "secret123", "Admin", "Acme")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	admin, _ := store.GetUser(ctx, session.User.ID)

	invite, err := svc.InviteUser(ctx, admin, "agent@acme.test", "Agent", models.RoleAgent, nil)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if err := svc.DeleteUser(ctx, admin, invite.User.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetUser(ctx, invite.User.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("user still present after deletion")
	}
	if _, err := store.GetUserPermission(ctx, invite.User.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("permission override still present after deletion")
	}
}
