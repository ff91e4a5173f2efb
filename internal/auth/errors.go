package auth

import "errors"

// Service errors
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserExists         = errors.New("user already exists")
	ErrSelfDeletion       = errors.New("cannot delete yourself")
	ErrAccessDenied       = errors.New("access denied")
)
