package domain

import "errors"

var (
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrUnknownExamMode   = errors.New("unknown exam mode")
)
