package exam

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

// Phase is the lifecycle stage of an attempt
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// QuestionStatus tracks how the learner has interacted with a question
type QuestionStatus string

const (
	StatusUnvisited  QuestionStatus = "unvisited"
	StatusUnanswered QuestionStatus = "unanswered"
	StatusAnswered   QuestionStatus = "answered"
	StatusReview     QuestionStatus = "review"
)

// Award is the XP and badge granted when an attempt finishes
type Award struct {
	XP    int    `json:"xp" yaml:"xp"`
	Badge string `json:"badge" yaml:"badge"`
}

// DefaultAward is granted for finishing a simulation
var DefaultAward = Award{XP: 50, Badge: domain.BadgeMarathoner}

// ExamQuestion is a question inside a running attempt
type ExamQuestion struct {
	domain.Question
	Status     QuestionStatus `json:"status"`
	UserAnswer string         `json:"user_answer,omitempty"`
}

// Result is computed once, at the running to finished transition
type Result struct {
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	Answered    int              `json:"answered"`
	Mistakes    []domain.Mistake `json:"mistakes"`
	TimeExpired bool             `json:"time_expired"`
	FinishedAt  time.Time        `json:"finished_at"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// Percent returns the score as a percentage of the question count
func (r *Result) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.Total)
}

// FinishHook runs once after an attempt finishes, outside the engine lock
type FinishHook func(ctx context.Context, r *Result)

// Engine runs one timed exam attempt.
//
// All state lives behind a single mutex. Submit checks and flips the phase
// in one critical section, so a timer expiry racing a manual submit finishes
// the attempt exactly once; the loser sees the finished phase and returns the
// existing result.
type Engine struct {
	provider QuestionProvider
	sink     MistakeSink
	awarder  XPAwarder
	award    Award
	now      func() time.Time
	logger   *slog.Logger
	hooks    []FinishHook

	mu        sync.Mutex
	phase     Phase
	config    Config
	questions []ExamQuestion
	current   int
	timeLeft  int
	startedAt time.Time
	result    *Result

	watchers watchers
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithMistakeSink sets where wrong answers are recorded
func WithMistakeSink(s MistakeSink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithAwarder sets who receives the completion award
func WithAwarder(a XPAwarder) EngineOption {
	return func(e *Engine) { e.awarder = a }
}

// WithAward overrides the completion award
func WithAward(a Award) EngineOption {
	return func(e *Engine) { e.award = a }
}

// WithNow overrides the clock used for mistake timestamps
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithFinishHook registers a hook that runs after the attempt finishes
func WithFinishHook(h FinishHook) EngineOption {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// NewEngine creates an idle engine that fetches questions from provider
func NewEngine(provider QuestionProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		award:    DefaultAward,
		now:      time.Now,
		logger:   slog.Default(),
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start fetches the question set and starts the countdown. A provider
// failure or an empty set puts the engine back in idle and returns
// ErrQuestionSource.
func (e *Engine) Start(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.phase != PhaseIdle {
		phase := e.phase
		e.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidOperation, phase)
	}
	e.phase = PhaseLoading
	e.mu.Unlock()
	e.notify()

	questions, err := e.provider.FetchQuestions(ctx, cfg.request())
	if err == nil && len(questions) == 0 {
		err = fmt.Errorf("provider returned no questions")
	}

	e.mu.Lock()
	if err != nil {
		e.phase = PhaseIdle
		e.mu.Unlock()
		e.notify()
		e.logger.Warn("exam start failed", "error", err)
		return fmt.Errorf("%w: %v", ErrQuestionSource, err)
	}

	if len(questions) > cfg.TotalQuestions {
		questions = questions[:cfg.TotalQuestions]
	}
	e.questions = make([]ExamQuestion, len(questions))
	for i, q := range questions {
		e.questions[i] = ExamQuestion{Question: q.Clone(), Status: StatusUnvisited}
	}
	e.config = cfg
	e.current = 0
	e.timeLeft = cfg.Seconds()
	e.startedAt = e.now()
	e.phase = PhaseRunning
	e.mu.Unlock()
	e.notify()

	e.logger.Info("exam started",
		"questions", len(questions),
		"duration_seconds", cfg.Seconds(),
		"difficulty", cfg.Difficulty,
		"exam_mode", cfg.ExamMode,
	)
	return nil
}

// Tick advances the countdown by one second. When time runs out it submits
// and returns the result with TimeExpired set; otherwise it returns nil.
// Ticks outside the running phase are ignored.
func (e *Engine) Tick(ctx context.Context) *Result {
	e.mu.Lock()
	if e.phase != PhaseRunning {
		e.mu.Unlock()
		return nil
	}
	e.timeLeft--
	if e.timeLeft > 0 {
		e.mu.Unlock()
		e.notify()
		return nil
	}
	e.timeLeft = 0
	result := e.finishLocked(true)
	e.mu.Unlock()

	return e.deliver(ctx, result)
}

// Answer records option as the answer to question index. Last write wins.
func (e *Engine) Answer(index int, option string) error {
	e.mu.Lock()
	q, err := e.questionLocked(index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !q.HasOption(option) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q is not an option of question %d", ErrInvalidOperation, option, index)
	}
	q.UserAnswer = option
	q.Status = StatusAnswered
	e.mu.Unlock()
	e.notify()
	return nil
}

// ToggleReview flips a question in or out of review. Leaving review goes
// back to answered or unanswered depending on whether an answer is set.
func (e *Engine) ToggleReview(index int) error {
	e.mu.Lock()
	q, err := e.questionLocked(index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	switch {
	case q.Status != StatusReview:
		q.Status = StatusReview
	case q.UserAnswer != "":
		q.Status = StatusAnswered
	default:
		q.Status = StatusUnanswered
	}
	e.mu.Unlock()
	e.notify()
	return nil
}

// Navigate moves to question to. The question being left is marked visited
// (unanswered) if it was still unvisited, including when to equals the
// current index.
func (e *Engine) Navigate(to int) error {
	e.mu.Lock()
	if _, err := e.questionLocked(to); err != nil {
		e.mu.Unlock()
		return err
	}
	if leaving := &e.questions[e.current]; leaving.Status == StatusUnvisited {
		leaving.Status = StatusUnanswered
	}
	e.current = to
	e.mu.Unlock()
	e.notify()
	return nil
}

// Submit scores the attempt and finishes it. Submitting an attempt that has
// already finished returns the existing result.
func (e *Engine) Submit(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	switch e.phase {
	case PhaseFinished:
		result := e.result
		e.mu.Unlock()
		return result, nil
	case PhaseRunning:
	default:
		phase := e.phase
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: submit while %s", ErrInvalidOperation, phase)
	}
	result := e.finishLocked(false)
	e.mu.Unlock()

	return e.deliver(ctx, result), nil
}

// finishLocked scores the attempt and moves it to finished. Callers must
// hold e.mu and must have checked the phase is running.
func (e *Engine) finishLocked(expired bool) *Result {
	now := e.now()
	result := &Result{
		Total:       len(e.questions),
		Mistakes:    []domain.Mistake{},
		TimeExpired: expired,
		FinishedAt:  now,
	}
	for _, q := range e.questions {
		if q.UserAnswer == "" {
			continue
		}
		result.Answered++
		if q.UserAnswer == q.Answer {
			result.Score++
			continue
		}
		result.Mistakes = append(result.Mistakes, domain.NewMistake(q.Question, q.UserAnswer, now))
	}

	e.phase = PhaseFinished
	e.result = result
	return result
}

// deliver runs the side effects of finishing and returns the final result.
// Only the caller that won the transition gets here. Results are never
// mutated once published, so award warnings go into a copy.
func (e *Engine) deliver(ctx context.Context, result *Result) *Result {
	if e.sink != nil {
		for _, m := range result.Mistakes {
			e.sink.RecordMistake(ctx, m)
		}
	}

	if e.awarder != nil && (e.award.XP > 0 || e.award.Badge != "") {
		var badges []string
		if e.award.Badge != "" {
			badges = append(badges, e.award.Badge)
		}
		if err := e.awarder.AwardXP(ctx, e.award.XP, badges...); err != nil {
			e.logger.Warn("exam award not applied cleanly", "error", err)
			withWarning := *result
			withWarning.Warnings = append(slices.Clone(result.Warnings), err.Error())
			result = &withWarning
			e.mu.Lock()
			e.result = result
			e.mu.Unlock()
		}
	}

	e.logger.Info("exam finished",
		"score", result.Score,
		"total", result.Total,
		"mistakes", len(result.Mistakes),
		"time_expired", result.TimeExpired,
	)

	for _, hook := range e.hooks {
		hook(ctx, result)
	}
	e.watchers.finish(e.Snapshot())
	return result
}

// questionLocked returns question index while the attempt is running
func (e *Engine) questionLocked(index int) (*ExamQuestion, error) {
	if e.phase != PhaseRunning {
		return nil, fmt.Errorf("%w: attempt is %s", ErrInvalidOperation, e.phase)
	}
	if index < 0 || index >= len(e.questions) {
		return nil, fmt.Errorf("%w: question index %d out of range [0,%d)", ErrInvalidOperation, index, len(e.questions))
	}
	return &e.questions[index], nil
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// TimeLeft returns the remaining seconds
func (e *Engine) TimeLeft() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLeft
}

// Current returns the index of the question on screen
func (e *Engine) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Questions returns a copy of the question list, answers included
func (e *Engine) Questions() []ExamQuestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExamQuestion, len(e.questions))
	for i, q := range e.questions {
		out[i] = q
		out[i].Question = q.Question.Clone()
	}
	return out
}

// Result returns the result once finished, nil before
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}
