package local

import "errors"

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for ids that are empty or contain path separators
	ErrInvalidID = errors.New("invalid record id")
)
