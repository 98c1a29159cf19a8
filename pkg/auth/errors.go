package auth

import "errors"

var (
	ErrDomainNotAllowed   = errors.New("auth: email domain is not allowed")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrSessionRevoked     = errors.New("auth: session revoked or expired")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrInvalidInput       = errors.New("auth: invalid input")
)
