package exam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:       fmt.Sprintf("q%d", i),
			Topic:    []string{"Kinematics", "Optics"}[i%2],
			Question: fmt.Sprintf("Question %d?", i),
			Options:  []string{"A", "B", "C", "D"},
			Answer:   "A",
		}
	}
	return qs
}

// fakeProvider returns a fixed set or a fixed error and records requests
type fakeProvider struct {
	mu        sync.Mutex
	questions []domain.Question
	err       error
	requests  []Request
}

func (p *fakeProvider) FetchQuestions(ctx context.Context, req Request) ([]domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.questions, nil
}

func staticProvider(n int) *fakeProvider {
	return &fakeProvider{questions: makeQuestions(n)}
}

// recordingSink collects mistakes
type recordingSink struct {
	mu       sync.Mutex
	mistakes []domain.Mistake
}

func (s *recordingSink) RecordMistake(ctx context.Context, m domain.Mistake) {
	s.mu.Lock()
	s.mistakes = append(s.mistakes, m)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mistakes)
}

type awardCall struct {
	amount int
	badges []string
}

// recordingAwarder collects awards and can fail on demand
type recordingAwarder struct {
	mu    sync.Mutex
	calls []awardCall
	err   error
}

func (a *recordingAwarder) AwardXP(ctx context.Context, amount int, badges ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, awardCall{amount: amount, badges: badges})
	return a.err
}

func (a *recordingAwarder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

var errProviderDown = errors.New("provider down")

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(n int) Config {
	return Config{
		TotalQuestions: n,
		Topics:         []string{"Kinematics", "Optics"},
		Difficulty:     domain.DifficultyMedium,
		Duration:       time.Minute,
	}
}

// startedEngine returns a running engine over n questions
func startedEngine(t *testing.T, n int, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithLogger(discardLogger()), WithNow(func() time.Time { return fixedNow })}, opts...)
	e := NewEngine(staticProvider(n), opts...)
	if err := e.Start(context.Background(), testConfig(n)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return e
}
