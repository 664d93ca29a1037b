package questions

import "errors"

var (
	ErrMalformedResponse = errors.New("response is not a question array")
	ErrNoQuestions       = errors.New("no usable questions")
	ErrCacheMiss         = errors.New("question set not cached")
)
