package gamification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory Store with switchable save failures
type memStore struct {
	mu       sync.Mutex
	states   map[string]*State
	failSave bool
	saves    int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*State)}
}

func (m *memStore) Load(ctx context.Context, user string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[user]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, user string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errDiskFull
	}
	m.saves++
	m.states[user] = state.Clone()
	return nil
}

func (m *memStore) Delete(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[user]; !ok {
		return ErrNotFound
	}
	delete(m.states, user)
	return nil
}

func (m *memStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.states))
	for u := range m.states {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

func (m *memStore) stored(user string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[user]
	return s, ok
}

func (m *memStore) setFailSave(fail bool) {
	m.mu.Lock()
	m.failSave = fail
	m.mu.Unlock()
}

// fakeClock is a settable Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(store Store, opts ...Option) *Engine {
	return NewEngine(store, append([]Option{WithLogger(discardLogger())}, opts...)...)
}
