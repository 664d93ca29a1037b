package questions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLLM replies with fixed content and records the last request
type scriptedLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	lastReq *llm.Request
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.reply}, nil
}

func registryWith(p llm.Provider) *llm.Registry {
	r := llm.NewRegistry()
	r.Register(p.Name(), p)
	return r
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:       fmt.Sprintf("s%d", i),
			Topic:    "Optics",
			Question: fmt.Sprintf("Sample %d?", i),
			Options:  []string{"1", "2", "3", "4"},
			Answer:   "2",
		}
	}
	return qs
}

// countingProvider returns questions or err and counts calls
type countingProvider struct {
	mu        sync.Mutex
	questions []domain.Question
	err       error
	calls     int
}

func (p *countingProvider) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.questions, nil
}

func (p *countingProvider) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// memCache is an in-memory Cache that ignores TTLs but records them
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	lastTTL time.Duration
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.lastTTL = ttl
	return nil
}
