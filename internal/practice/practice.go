// Package practice generates untimed custom tests and grades them.
package practice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/validation"
	"github.com/google/uuid"
)

// AceThreshold is the percentage that earns the test-aced bonus
const AceThreshold = 90.0

// Request describes a custom test
type Request struct {
	Topics     []string          `json:"topics" validate:"required,min=1,dive,required"`
	Count      int               `json:"count" validate:"gte=1,lte=50"`
	Difficulty domain.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	ExamMode   domain.ExamMode   `json:"exam_mode,omitempty" validate:"omitempty,oneof=JEE BITSAT VITEEE"`
}

// Test is a generated question set
type Test struct {
	ID        string                 `json:"id"`
	Questions []domain.Question      `json:"questions"`
	XP        *gamification.XPResult `json:"xp,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// Grade is the outcome of a submitted test
type Grade struct {
	Correct    int                    `json:"correct"`
	Total      int                    `json:"total"`
	Percentage float64                `json:"percentage"`
	Aced       bool                   `json:"aced"`
	Mistakes   []domain.Mistake       `json:"mistakes"`
	XP         *gamification.XPResult `json:"xp,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// Rewarder grants reward-table events
type Rewarder interface {
	Reward(ctx context.Context, user string, event gamification.Event) (*gamification.XPResult, error)
}

// Config wires the service to its collaborators
type Config struct {
	Provider exam.QuestionProvider
	Rewards  Rewarder
	Mistakes func(user string) exam.MistakeSink
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Service generates and grades practice tests
type Service struct {
	cfg    Config
	logger *slog.Logger
}

// NewService creates a practice service
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, logger: logger.With("component", "practice")}
}

// Generate fetches a question set for req and awards the generation XP
func (s *Service) Generate(ctx context.Context, user string, req Request) (*Test, error) {
	user = domain.NormalizeEmail(user)
	if user == "" {
		return nil, ErrInvalidUser
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.DifficultyMedium
	}
	if err := validation.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, validation.Message(err))
	}

	qs, err := s.cfg.Provider.FetchQuestions(ctx, exam.Request{
		Topics:     req.Topics,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		ExamMode:   req.ExamMode,
	})
	if err != nil {
		return nil, err
	}
	if len(qs) > req.Count {
		qs = qs[:req.Count]
	}

	test := &Test{ID: uuid.New().String(), Questions: qs}
	test.XP, test.Warnings = s.reward(ctx, user, nil, gamification.EventTestGenerated)
	s.logger.Info("practice test generated", "user", user, "test_id", test.ID, "questions", len(qs))
	return test, nil
}

// Grade scores answers keyed by question id. Every question needs an
// answer. Wrong answers go to the user's mistake sink.
func (s *Service) Grade(ctx context.Context, user string, qs []domain.Question, answers map[string]string) (*Grade, error) {
	user = domain.NormalizeEmail(user)
	if user == "" {
		return nil, ErrInvalidUser
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidRequest)
	}
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %q: %v", ErrInvalidRequest, q.ID, err)
		}
		if strings.TrimSpace(answers[q.ID]) == "" {
			return nil, fmt.Errorf("%w: question %q", ErrIncomplete, q.ID)
		}
	}

	var sink exam.MistakeSink
	if s.cfg.Mistakes != nil {
		sink = s.cfg.Mistakes(user)
	}

	now := s.cfg.Clock()
	g := &Grade{Total: len(qs), Mistakes: []domain.Mistake{}}
	for _, q := range qs {
		if answers[q.ID] == q.Answer {
			g.Correct++
			continue
		}
		m := domain.NewMistake(q, answers[q.ID], now)
		g.Mistakes = append(g.Mistakes, m)
		if sink != nil {
			sink.RecordMistake(ctx, m)
		}
	}
	g.Percentage = float64(g.Correct) / float64(g.Total) * 100
	g.Aced = g.Percentage >= AceThreshold

	events := []gamification.Event{gamification.EventTestCompleted}
	if g.Aced {
		events = append(events, gamification.EventTestAced)
	}
	var result *gamification.XPResult
	for _, ev := range events {
		var warnings []string
		result, warnings = s.reward(ctx, user, result, ev)
		g.Warnings = append(g.Warnings, warnings...)
	}
	g.XP = result

	s.logger.Info("practice test graded", "user", user, "correct", g.Correct, "total", g.Total)
	return g, nil
}

// reward applies event and folds its result into prev, so levels and badges
// from several events add up. prev is kept when the reward fails outright.
func (s *Service) reward(ctx context.Context, user string, prev *gamification.XPResult, event gamification.Event) (*gamification.XPResult, []string) {
	if s.cfg.Rewards == nil {
		return prev, nil
	}
	res, err := s.cfg.Rewards.Reward(ctx, user, event)
	var warnings []string
	if err != nil {
		s.logger.Warn("practice reward not applied cleanly", "event", event, "error", err)
		warnings = []string{err.Error()}
	}
	if res == nil {
		return prev, warnings
	}
	if prev != nil {
		res.LevelsGained += prev.LevelsGained
		res.NewBadges = append(append([]string(nil), prev.NewBadges...), res.NewBadges...)
	}
	return res, warnings
}
