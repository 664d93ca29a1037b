package exam

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/google/uuid"
)

// DefaultRetention is how long a finished attempt stays readable
const DefaultRetention = 30 * time.Minute

// FinishedEvent announces a finished attempt
type FinishedEvent struct {
	AttemptID   string          `json:"attempt_id"`
	User        string          `json:"user"`
	ExamMode    domain.ExamMode `json:"exam_mode,omitempty"`
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Mistakes    int             `json:"mistakes"`
	TimeExpired bool            `json:"time_expired"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// ServiceConfig wires an exam service to its collaborators. Mistakes and
// Awards are resolved per user so each attempt reports to its own learner.
type ServiceConfig struct {
	Provider     QuestionProvider
	Mistakes     func(user string) MistakeSink
	Awards       func(user string) XPAwarder
	Publisher    Publisher
	Award        Award
	TickInterval time.Duration
	Retention    time.Duration
	Logger       *slog.Logger
}

// Attempt is a live exam owned by one user
type Attempt struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`

	engine *Engine
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine returns the engine running this attempt
func (a *Attempt) Engine() *Engine { return a.engine }

// Done is closed once the attempt's runner has stopped
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Summary is a short description of an attempt
type Summary struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	Total     int       `json:"total"`
	TimeLeft  int       `json:"time_left_seconds"`
	Score     *int      `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages live attempts for many users. Each attempt gets its own
// engine and a runner goroutine bound to the service lifetime, not to the
// request that started it.
type Service struct {
	cfg    ServiceConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	attempts map[string]*Attempt
}

// NewService creates an exam service
func NewService(cfg ServiceConfig) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = TickInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Award == (Award{}) {
		cfg.Award = DefaultAward
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:      cfg,
		logger:   logger.With("component", "exam"),
		ctx:      ctx,
		cancel:   cancel,
		attempts: make(map[string]*Attempt),
	}
}

// Start creates an attempt for user, fetches its questions and starts the
// countdown. The question fetch is bound to ctx; the countdown is not.
func (s *Service) Start(ctx context.Context, user string, cfg Config) (*Attempt, error) {
	s.Sweep()

	id := uuid.New().String()
	logger := s.logger.With("attempt_id", id, "user", user)

	opts := []EngineOption{WithAward(s.cfg.Award), WithLogger(logger)}
	if s.cfg.Mistakes != nil {
		if sink := s.cfg.Mistakes(user); sink != nil {
			opts = append(opts, WithMistakeSink(sink))
		}
	}
	if s.cfg.Awards != nil {
		if awarder := s.cfg.Awards(user); awarder != nil {
			opts = append(opts, WithAwarder(awarder))
		}
	}
	if s.cfg.Publisher != nil {
		opts = append(opts, WithFinishHook(s.publishHook(id, user, cfg.ExamMode)))
	}

	engine := NewEngine(s.cfg.Provider, opts...)
	if err := engine.Start(ctx, cfg); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	attempt := &Attempt{
		ID:        id,
		User:      user,
		CreatedAt: time.Now(),
		engine:    engine,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.attempts[id] = attempt
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(attempt.done)
		NewRunner(engine, s.cfg.TickInterval).Run(runCtx)
	}()

	return attempt, nil
}

func (s *Service) publishHook(id, user string, mode domain.ExamMode) FinishHook {
	return func(ctx context.Context, r *Result) {
		ev := FinishedEvent{
			AttemptID:   id,
			User:        user,
			ExamMode:    mode,
			Score:       r.Score,
			Total:       r.Total,
			Mistakes:    len(r.Mistakes),
			TimeExpired: r.TimeExpired,
			FinishedAt:  r.FinishedAt,
		}
		if err := s.cfg.Publisher.PublishExamFinished(ctx, ev); err != nil {
			s.logger.Warn("failed to publish exam finished event", "attempt_id", id, "error", err)
		}
	}
}

// Get returns user's attempt id. Attempts of other users are reported as
// not found.
func (s *Service) Get(user, id string) (*Attempt, error) {
	s.mu.RLock()
	attempt, ok := s.attempts[id]
	s.mu.RUnlock()
	if !ok || attempt.User != user {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return attempt, nil
}

// List returns user's attempts, newest first
func (s *Service) List(user string) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Summary{}
	for _, a := range s.attempts {
		if a.User != user {
			continue
		}
		snap := a.engine.Snapshot()
		sum := Summary{
			ID:        a.ID,
			Phase:     snap.Phase,
			Total:     snap.Total,
			TimeLeft:  snap.TimeLeft,
			CreatedAt: a.CreatedAt,
		}
		if snap.Result != nil {
			score := snap.Result.Score
			sum.Score = &score
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Answer answers question index of attempt id
func (s *Service) Answer(user, id string, index int, option string) (Snapshot, error) {
	return s.apply(user, id, func(e *Engine) error { return e.Answer(index, option) })
}

// ToggleReview toggles the review mark on question index
func (s *Service) ToggleReview(user, id string, index int) (Snapshot, error) {
	return s.apply(user, id, func(e *Engine) error { return e.ToggleReview(index) })
}

// Navigate moves attempt id to question index
func (s *Service) Navigate(user, id string, index int) (Snapshot, error) {
	return s.apply(user, id, func(e *Engine) error { return e.Navigate(index) })
}

// Submit finishes attempt id and stops its countdown
func (s *Service) Submit(ctx context.Context, user, id string) (*Result, error) {
	attempt, err := s.Get(user, id)
	if err != nil {
		return nil, err
	}
	result, err := attempt.engine.Submit(ctx)
	if err != nil {
		return nil, err
	}
	attempt.cancel()
	return result, nil
}

func (s *Service) apply(user, id string, op func(*Engine) error) (Snapshot, error) {
	attempt, err := s.Get(user, id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := op(attempt.engine); err != nil {
		return Snapshot{}, err
	}
	return attempt.engine.Snapshot(), nil
}

// Sweep drops finished attempts older than the retention period and
// returns how many were removed.
func (s *Service) Sweep() int {
	cutoff := time.Now().Add(-s.cfg.Retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, a := range s.attempts {
		result := a.engine.Result()
		if result == nil || result.FinishedAt.After(cutoff) {
			continue
		}
		a.cancel()
		delete(s.attempts, id)
		removed++
	}
	if removed > 0 {
		s.logger.Debug("swept finished attempts", "count", removed)
	}
	return removed
}

// Close stops every runner. Unfinished attempts are abandoned unscored.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
