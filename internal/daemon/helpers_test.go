package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/auth"
	"github.com/felixgeelhaar/prepwise/internal/coach"
	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/llm"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
	"github.com/felixgeelhaar/prepwise/internal/practice"
	"github.com/felixgeelhaar/prepwise/internal/storage/local"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret-pass"

const planReply = `{
  "week_goal": "Fix optics",
  "daily_plans": [
    {"day": 1, "topic": "Optics", "task": "Review theory", "details": "Lens formula"},
    {"day": 2, "topic": "Optics", "task": "Solve 15 MCQs", "details": "Mirrors"}
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:       fmt.Sprintf("q%d", i),
			Topic:    "Optics",
			Question: fmt.Sprintf("Question %d?", i),
			Options:  []string{"A", "B", "C", "D"},
			Answer:   "A",
		}
	}
	return qs
}

// fixedSource serves generated questions for any request
type fixedSource struct {
	mu  sync.Mutex
	err error
}

func (f *fixedSource) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return makeQuestions(req.Count), nil
}

// scriptedLLM replies with fixed content
type scriptedLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.reply}, nil
}

type testEnv struct {
	srv     *Server
	model   *scriptedLLM
	source  *fixedSource
	engine  *gamification.Engine
	journal *mistakes.Journal
}

type envOption func(*ServerConfig)

func withoutCoach() envOption {
	return func(c *ServerConfig) { c.Coach = nil }
}

func withRateLimit(rate, burst int) envOption {
	return func(c *ServerConfig) { c.RateLimit = RateLimitConfig{RequestsPerMinute: rate, Burst: burst} }
}

func withOrigins(origins ...string) envOption {
	return func(c *ServerConfig) { c.Config.Daemon.AllowedOrigins = origins }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := discardLogger()

	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	engine := gamification.NewEngine(gamification.NewJSONStoreFrom(store), gamification.WithLogger(logger))
	journal := mistakes.NewJournal(mistakes.NewJSONStoreFrom(store),
		mistakes.WithRewarder(engine), mistakes.WithLogger(logger))

	authStore := auth.NewJSONStore(store)
	authSvc, err := auth.NewService(authStore, authStore, auth.Config{
		Secret:     []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}
	authSvc.SetLogger(logger)

	source := &fixedSource{}
	sinkFor := func(u string) exam.MistakeSink { return journal.Sink(u) }
	exams := exam.NewService(exam.ServiceConfig{
		Provider:     source,
		Mistakes:     sinkFor,
		Awards:       func(u string) exam.XPAwarder { return engine.Awarder(u) },
		TickInterval: time.Hour,
		Logger:       logger,
	})
	t.Cleanup(exams.Close)

	model := &scriptedLLM{reply: planReply}
	registry := llm.NewRegistry()
	registry.Register("scripted", model)
	if err := registry.SetDefault("scripted"); err != nil {
		t.Fatalf("SetDefault() error = %v", err)
	}

	cfg := ServerConfig{
		Config:   config.DefaultLocalConfig(),
		Auth:     authSvc,
		Progress: engine,
		Exams:    exams,
		Practice: practice.NewService(practice.Config{
			Provider: source,
			Rewards:  engine,
			Mistakes: sinkFor,
			Logger:   logger,
		}),
		Journal: journal,
		Coach: coach.New(coach.Config{
			Registry: registry,
			Topics:   journal,
			Plans:    coach.NewJSONPlanStore(store),
			Rewards:  engine,
			Logger:   logger,
		}),
		Registry: registry,
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(srv.limiter.Stop)

	return &testEnv{srv: srv, model: model, source: source, engine: engine, journal: journal}
}

// do sends a request through the full middleware chain
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// login signs email in as a student and returns the token
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: email, Password: testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d; body = %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d; want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}
