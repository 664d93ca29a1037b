package practice

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid practice request")
	ErrIncomplete     = errors.New("every question must be answered")
	ErrInvalidUser    = errors.New("user identity is required")
)
