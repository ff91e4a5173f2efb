package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// ========== User methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, created_at, updated_at, email, name, password_hash, role, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.Name,
		user.PasswordHash, user.Role, user.TenantID,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, created_at, updated_at, email, name, password_hash, role, tenant_id
		FROM users
		WHERE id = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.TenantID,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, created_at, updated_at, email, name, password_hash, role, tenant_id
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.TenantID,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, name = $4, password_hash = $5,
			role = $6, tenant_id = $7
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.Name, user.PasswordHash,
		user.Role, user.TenantID,
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

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
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

// ListUsers lists users, optionally scoped to a tenant
func (s *PostgresStore) ListUsers(ctx context.Context, tenantID *uuid.UUID, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, created_at, updated_at, email, name, password_hash, role, tenant_id
		FROM users`
	args := []interface{}{}

	if tenantID != nil {
		query += ` WHERE tenant_id = $1 ORDER BY created_at LIMIT $2`
		args = append(args, *tenantID, limit)
	} else {
		query += ` ORDER BY created_at LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
			&user.PasswordHash, &user.Role, &user.TenantID,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ========== User permission methods ==========

// UpsertUserPermission creates or replaces a user's permission override
func (s *PostgresStore) UpsertUserPermission(ctx context.Context, perm *models.UserPermission) error {
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	if perm.CreatedAt.IsZero() {
		perm.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO user_permissions (id, created_at, user_id, tenant_id, permissions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET permissions = EXCLUDED.permissions`

	_, err := s.getDB().ExecContext(ctx, query,
		perm.ID, perm.CreatedAt, perm.UserID, perm.TenantID, perm.Permissions,
	)
	return err
}

// GetUserPermission gets a user's permission override
func (s *PostgresStore) GetUserPermission(ctx context.Context, userID uuid.UUID) (*models.UserPermission, error) {
	query := `
		SELECT id, created_at, user_id, tenant_id, permissions
		FROM user_permissions
		WHERE user_id = $1`

	perm := &models.UserPermission{}
	err := s.getDB().QueryRowContext(ctx, query, userID).Scan(
		&perm.ID, &perm.CreatedAt, &perm.UserID, &perm.TenantID, &perm.Permissions,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return perm, err
}

// DeleteUserPermission deletes a user's permission override. Missing rows
// are not an error: not every user has an override.
func (s *PostgresStore) DeleteUserPermission(ctx context.Context, userID uuid.UUID) error {
	_, err := s.getDB().ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID)
	return err
}
