package exam

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/validation"
)

// Config describes one exam attempt
type Config struct {
	TotalQuestions int               `json:"total_questions" validate:"gt=0,lte=200"`
	Topics         []string          `json:"topics" validate:"required,min=1,dive,required"`
	Difficulty     domain.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	Duration       time.Duration     `json:"duration" validate:"mindur=1s"`
	ExamMode       domain.ExamMode   `json:"exam_mode,omitempty" validate:"omitempty,oneof=JEE BITSAT VITEEE"`
}

// Validate applies defaults and checks the config
func (c *Config) Validate() error {
	if c.Difficulty == "" {
		c.Difficulty = domain.DifficultyMedium
	}
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, validation.Message(err))
	}
	return nil
}

// Seconds returns the duration in whole seconds, rounding up
func (c Config) Seconds() int {
	return int((c.Duration + time.Second - 1) / time.Second)
}

// request builds the provider request for this config
func (c Config) request() Request {
	return Request{
		Topics:     append([]string(nil), c.Topics...),
		Count:      c.TotalQuestions,
		Difficulty: c.Difficulty,
		ExamMode:   c.ExamMode,
	}
}

// ConfigFromPreset builds a full-length simulation covering every topic of
// every subject in the preset.
func ConfigFromPreset(p domain.ExamPreset, difficulty domain.Difficulty) Config {
	var topics []string
	for _, subject := range p.SubjectNames() {
		topics = append(topics, p.Subjects[subject]...)
	}
	return Config{
		TotalQuestions: p.TotalQuestions,
		Topics:         topics,
		Difficulty:     difficulty,
		Duration:       p.Duration,
		ExamMode:       p.Mode,
	}
}
