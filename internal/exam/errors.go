package exam

import "errors"

var (
	// ErrQuestionSource means no usable question set could be fetched.
	// The attempt is back in the idle phase and Start may be retried.
	ErrQuestionSource = errors.New("question source unavailable")

	// ErrInvalidOperation is a contract violation: wrong phase, index out
	// of range, or an option the question does not offer.
	ErrInvalidOperation = errors.New("invalid exam operation")

	ErrInvalidConfig   = errors.New("invalid exam config")
	ErrAttemptNotFound = errors.New("exam attempt not found")
)
