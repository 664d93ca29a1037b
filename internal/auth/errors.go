package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidInvite      = errors.New("invalid student email or invite code")
	ErrNotStudent         = errors.New("only students can invite mentors")
	ErrNoSecret           = errors.New("jwt secret is required")
	ErrInvalidRequest     = errors.New("invalid request")
)
