package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/authz"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
	"github.com/bantconfirm/whatsapp-platform/pkg/crypto"
)

// tempPasswordBytes sizes the random temporary password handed out on
// invite. The password is returned once and never re-derivable.
const tempPasswordBytes = 12

// Service implements identity and session management
type Service struct {
	store storage.Store
	jwt   *JWTManager
}

// NewService creates a new auth service
func NewService(store storage.Store, jwtManager *JWTManager) *Service {
	return &Service{
		store: store,
		jwt:   jwtManager,
	}
}

// Session is the result of a successful signup or login
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Signup registers a new user. When tenantName is supplied a tenant is
// created and the user becomes its tenant_admin; otherwise the user is a
// platform-level super_admin with no tenant.
func (s *Service) Signup(ctx context.Context, email, password, name, tenantName string) (*Session, error) {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	var tenantID *uuid.UUID
	role := models.RoleSuperAdmin

	if tenantName != "" {
		tenant := &models.Tenant{Name: tenantName}
		if err := s.store.CreateTenant(ctx, tenant); err != nil {
			return nil, fmt.Errorf("create tenant: %w", err)
		}
		tenantID = &tenant.ID
		role = models.RoleTenantAdmin
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		TenantID:     tenantID,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("role", string(role)).Msg("User signed up")

	return &Session{Token: token, User: user.Public()}, nil
}

// Login authenticates a user by email and password. The error is uniform
// whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: user.Public()}, nil
}

// Verify validates a token and resolves the current user record. Role and
// tenant come from storage, not the token payload, so role changes apply to
// in-flight tokens immediately.
func (s *Service) Verify(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.jwt.ParseToken(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Invite is the result of a successful user invite. TempPassword is
// returned exactly once; delivery to the invitee is an external concern.
type Invite struct {
	User         models.PublicUser `json:"user"`
	TempPassword string            `json:"temp_password"`
}

// InviteUser creates a user in the inviter's tenant with a random temporary
// password and a permission override from the explicit permissions or the
// role defaults.
func (s *Service) InviteUser(ctx context.Context, inviter *models.User, email, name string, role models.Role, perms []models.Permission) (*Invite, error) {
	if !authz.RoleAllowed(inviter.Role, models.RoleTenantAdmin) {
		return nil, ErrAccessDenied
	}
	if inviter.TenantID == nil {
		return nil, ErrAccessDenied
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	tempPassword, err := crypto.GenerateRandomString(tempPasswordBytes)
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}

	hash, err := crypto.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		TenantID:     inviter.TenantID,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if len(perms) == 0 {
		perms = authz.DefaultPermissions(role)
	}

	override := &models.UserPermission{
		UserID:      user.ID,
		TenantID:    *inviter.TenantID,
		Permissions: perms,
	}
	if err := s.store.UpsertUserPermission(ctx, override); err != nil {
		return nil, fmt.Errorf("store permissions: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("invited_by", inviter.ID.String()).
		Str("role", string(role)).
		Msg("User invited")

	return &Invite{User: user.Public(), TempPassword: tempPassword}, nil
}

// DeleteUser removes a user and their permission override as one logical
// deletion. The requester must be a tenant_admin of the target's tenant.
func (s *Service) DeleteUser(ctx context.Context, requester *models.User, targetID uuid.UUID) error {
	if !authz.RoleAllowed(requester.Role, models.RoleTenantAdmin) {
		return ErrAccessDenied
	}
	if requester.ID == targetID {
		return ErrSelfDeletion
	}

	target, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		return err
	}

	if requester.TenantID == nil || target.TenantID == nil || *requester.TenantID != *target.TenantID {
		return storage.ErrNotFound
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The override row references the user row, so it goes first.
	if err := tx.DeleteUserPermission(ctx, targetID); err != nil {
		return err
	}
	if err := tx.DeleteUser(ctx, targetID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("user_id", targetID.String()).
		Str("deleted_by", requester.ID.String()).
		Msg("User deleted")

	return nil
}
