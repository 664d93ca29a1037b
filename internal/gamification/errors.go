package gamification

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a user has no stored state
	ErrNotFound = errors.New("gamification state not found")

	ErrInvalidAmount = errors.New("xp amount must not be negative")
	ErrInvalidUser   = errors.New("user identity is required")
	ErrUnknownEvent  = errors.New("unknown reward event")
)

// PersistenceWarning reports that a state change was applied in memory but
// could not be written to the store. The returned state is still authoritative.
type PersistenceWarning struct {
	User string
	Err  error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("progress for %s not persisted: %v", w.User, w.Err)
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}

// IsPersistenceWarning reports whether err is (or wraps) a PersistenceWarning
func IsPersistenceWarning(err error) bool {
	var w *PersistenceWarning
	return errors.As(err, &w)
}
