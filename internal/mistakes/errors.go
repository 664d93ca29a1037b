package mistakes

import "errors"

var (
	ErrInvalidUser = errors.New("user identity is required")
	ErrInvalid     = errors.New("invalid mistake")
)
