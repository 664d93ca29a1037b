package domain

import "time"

// Mistake records an incorrectly answered question. Blank answers are never mistakes.
type Mistake struct {
	Question   Question `json:"question"`
	UserAnswer string   `json:"user_answer"`
	Timestamp  int64    `json:"timestamp"` // epoch milliseconds
}

// NewMistake snapshots q together with the wrong answer given at t
func NewMistake(q Question, userAnswer string, t time.Time) Mistake {
	return Mistake{
		Question:   q.Clone(),
		UserAnswer: userAnswer,
		Timestamp:  t.UnixMilli(),
	}
}

// Time returns the mistake timestamp as a time.Time
func (m Mistake) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
