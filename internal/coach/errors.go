package coach

import "errors"

var (
	// ErrNoWeakTopics means the journal is empty, so there is nothing to plan for
	ErrNoWeakTopics = errors.New("no mistakes recorded yet")
	// ErrMalformedPlan means the model reply was not a usable plan
	ErrMalformedPlan = errors.New("malformed learning plan")
	ErrPlanNotFound  = errors.New("learning plan not found")
	ErrInvalidInput  = errors.New("invalid coach input")
	ErrInvalidUser   = errors.New("user identity is required")
)
