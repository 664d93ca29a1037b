package domain

import (
	"fmt"
	"slices"
	"strings"
)

// OptionsPerQuestion is the number of choices every multiple-choice question carries.
const OptionsPerQuestion = 4

// Difficulty is the requested difficulty of a generated question set
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty accepts a difficulty name in any case
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Question is a single multiple-choice question as produced by a question source
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Topic    string   `json:"topic" yaml:"topic"`
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Answer   string   `json:"answer" yaml:"answer"`
}

// Validate checks the structural rules of a question: non-empty text,
// exactly four options and an answer that is one of them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%w: %d options, want %d", ErrInvalidQuestion, len(q.Options), OptionsPerQuestion)
	}
	if !q.HasOption(q.Answer) {
		return fmt.Errorf("%w: answer %q is not one of the options", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

// HasOption reports whether option is one of the question's choices
func (q Question) HasOption(option string) bool {
	return slices.Contains(q.Options, option)
}

// Clone returns a deep copy so snapshots never share the options slice
func (q Question) Clone() Question {
	q.Options = slices.Clone(q.Options)
	return q
}
