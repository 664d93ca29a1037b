// Package coach builds learning plans from the mistake journal and answers
// free-form doubts with the configured model.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/llm"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

const (
	// PlanTopics is how many weak topics feed a plan
	PlanTopics = 3

	// MaxDoubtLength bounds the text of a single doubt
	MaxDoubtLength = 4000

	planTemperature  = 0.7
	doubtTemperature = 0.5
	notesTemperature = 0.6
)

// WeakTopicSource ranks a learner's weakest topics
type WeakTopicSource interface {
	WeakTopics(ctx context.Context, user string, n int) ([]mistakes.TopicCount, error)
}

// Rewarder grants reward-table events
type Rewarder interface {
	Reward(ctx context.Context, user string, event gamification.Event) (*gamification.XPResult, error)
}

// Solution is the answer to a doubt
type Solution struct {
	Answer   string                 `json:"answer"`
	XP       *gamification.XPResult `json:"xp,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// PlanResult is a freshly generated plan with its reward
type PlanResult struct {
	Plan     *Plan                  `json:"plan"`
	XP       *gamification.XPResult `json:"xp,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Config wires the coach to its collaborators. Plans and Rewards are optional.
type Config struct {
	Registry llm.LLMRegistry
	Topics   WeakTopicSource
	Plans    PlanStore
	Rewards  Rewarder
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Coach generates plans, solves doubts and writes notes
type Coach struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a coach
func New(cfg Config) *Coach {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{cfg: cfg, logger: logger.With("component", "coach")}
}

// Plan builds a 7-day plan targeting the user's weakest topics, stores it
// as the user's current plan and awards the plan XP.
func (c *Coach) Plan(ctx context.Context, user string) (*PlanResult, error) {
	user = domain.NormalizeEmail(user)
	if user == "" {
		return nil, ErrInvalidUser
	}

	weak, err := c.cfg.Topics.WeakTopics(ctx, user, PlanTopics)
	if err != nil {
		return nil, fmt.Errorf("weak topics: %w", err)
	}
	if len(weak) == 0 {
		return nil, ErrNoWeakTopics
	}
	topics := make([]string, len(weak))
	for i, tc := range weak {
		topics[i] = tc.Topic
	}

	text, err := c.ask(ctx, llm.Prompt{
		System:      planSystemPrompt(),
		User:        planUserPrompt(topics),
		JSON:        true,
		Temperature: planTemperature,
	})
	if err != nil {
		return nil, err
	}

	plan, err := ParsePlan(text)
	if err != nil {
		return nil, err
	}
	plan.WeakTopics = topics
	plan.GeneratedAt = c.cfg.Clock().UTC()

	res := &PlanResult{Plan: plan}
	if c.cfg.Plans != nil {
		if err := c.cfg.Plans.SavePlan(ctx, user, plan); err != nil {
			c.logger.Warn("failed to store learning plan", "user", user, "error", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	res.XP, res.Warnings = c.reward(ctx, user, gamification.EventPlanGenerated, res.Warnings)

	c.logger.Info("learning plan generated", "user", user, "topics", topics, "days", len(plan.DailyPlans))
	return res, nil
}

// CurrentPlan returns the user's stored plan
func (c *Coach) CurrentPlan(ctx context.Context, user string) (*Plan, error) {
	if c.cfg.Plans == nil {
		return nil, ErrPlanNotFound
	}
	return c.cfg.Plans.LoadPlan(ctx, domain.NormalizeEmail(user))
}

// ClearPlan removes the user's stored plan
func (c *Coach) ClearPlan(ctx context.Context, user string) error {
	if c.cfg.Plans == nil {
		return nil
	}
	return c.cfg.Plans.DeletePlan(ctx, domain.NormalizeEmail(user))
}

// SolveDoubt returns a step-by-step solution and awards the doubt XP
func (c *Coach) SolveDoubt(ctx context.Context, user, question string) (*Solution, error) {
	user = domain.NormalizeEmail(user)
	if user == "" {
		return nil, ErrInvalidUser
	}
	question = strings.TrimSpace(question)
	if question == "" || len(question) > MaxDoubtLength {
		return nil, fmt.Errorf("%w: question must be 1-%d characters", ErrInvalidInput, MaxDoubtLength)
	}

	answer, err := c.ask(ctx, llm.Prompt{
		System:      doubtSystemPrompt(),
		User:        question,
		Temperature: doubtTemperature,
	})
	if err != nil {
		return nil, err
	}

	sol := &Solution{Answer: answer}
	sol.XP, sol.Warnings = c.reward(ctx, user, gamification.EventDoubtSolved, nil)
	return sol, nil
}

// Notes writes markdown study notes for topic
func (c *Coach) Notes(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	return c.ask(ctx, llm.Prompt{
		System:      notesSystemPrompt(),
		User:        notesUserPrompt(topic),
		Temperature: notesTemperature,
	})
}

func (c *Coach) ask(ctx context.Context, pr llm.Prompt) (string, error) {
	provider, err := c.cfg.Registry.Default()
	if err != nil {
		return "", err
	}
	text, err := llm.Ask(ctx, provider, pr)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider.Name(), err)
	}
	return text, nil
}

func (c *Coach) reward(ctx context.Context, user string, event gamification.Event, warnings []string) (*gamification.XPResult, []string) {
	if c.cfg.Rewards == nil {
		return nil, warnings
	}
	res, err := c.cfg.Rewards.Reward(ctx, user, event)
	if err != nil {
		c.logger.Warn("coach reward not applied cleanly", "event", event, "error", err)
		warnings = append(warnings, err.Error())
	}
	return res, warnings
}
