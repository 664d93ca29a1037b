package gamification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

// streakBadgeThreshold is the streak length that unlocks the streaker badge
const streakBadgeThreshold = 3

// XPResult describes the outcome of an XP award
type XPResult struct {
	State        *State   `json:"state"`
	LevelsGained int      `json:"levels_gained"`
	NewBadges    []string `json:"new_badges,omitempty"`
}

// StreakResult describes the outcome of a streak check
type StreakResult struct {
	State     *State   `json:"state"`
	Changed   bool     `json:"changed"`
	NewBadges []string `json:"new_badges,omitempty"`
}

// Engine applies XP, badge and streak rules to per-user state.
//
// Each user's read-modify-persist sequence runs under that user's lock, so
// an XP award and a streak check for the same user never interleave. Every
// sequence starts from the store, so several engines (the daemon and the MCP
// server) can share one backend. A failed save keeps the new state in memory
// as the user's state until a later save succeeds, and reports a
// PersistenceWarning.
type Engine struct {
	store   Store
	clock   Clock
	badges  domain.BadgeRegistry
	rewards Rewards
	pub     Publisher
	logger  *slog.Logger

	locks userLocks

	mu      sync.RWMutex
	unsaved map[string]*State
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the wall clock used for streak checks
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithBadges overrides the badge registry used for metadata lookups
func WithBadges(r domain.BadgeRegistry) Option {
	return func(e *Engine) { e.badges = r }
}

// WithRewards overrides the reward table
func WithRewards(r Rewards) Option {
	return func(e *Engine) { e.rewards = r }
}

// WithPublisher announces every applied XP award through p
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithLogger sets the logger used for persistence warnings
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a gamification engine backed by store
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		clock:   SystemClock{},
		badges:  domain.DefaultBadges(),
		rewards: DefaultRewards(),
		logger:  slog.Default(),
		unsaved: make(map[string]*State),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get returns a copy of the user's current state
func (e *Engine) Get(ctx context.Context, user string) (*State, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(user)
	defer unlock()

	state, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// AddXP awards amount XP and unlocks any badges not yet held. Unknown badge
// ids are recorded as-is. Levels are applied in a loop, so one large award
// can cross several thresholds.
func (e *Engine) AddXP(ctx context.Context, user string, amount int, badges ...string) (*XPResult, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(user)
	defer unlock()

	state, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	gained := next.addXP(amount)
	added := next.unlock(badges...)

	for _, id := range added {
		if _, known := e.badges.Lookup(id); !known {
			e.logger.Debug("unlocked badge without registry entry", "user", user, "badge", id)
		}
	}

	result := &XPResult{LevelsGained: gained, NewBadges: added}
	err = e.commit(ctx, user, next)
	result.State = next.Clone()
	if e.pub != nil {
		if perr := e.pub.PublishXPAwarded(ctx, user, amount, next.Level, added); perr != nil {
			e.logger.Warn("xp award publish failed", "user", user, "error", perr)
		}
	}
	return result, err
}

// CheckAndApplyStreak updates the login streak for the current calendar day.
// A second call on the same day changes nothing. A login on the day after the
// last one extends the streak; any longer gap, or a first login, restarts it
// at 1. Reaching the streak threshold unlocks the streaker badge.
func (e *Engine) CheckAndApplyStreak(ctx context.Context, user string) (*StreakResult, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(user)
	defer unlock()

	state, err := e.load(ctx, user)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	last, seen := fromMillis(state.LastLoginTimestamp, now.Location())

	if seen && sameDay(last, now, now.Location()) {
		return &StreakResult{State: state.Clone()}, nil
	}

	next := state.Clone()
	if seen && isYesterday(last, now) {
		next.Streak++
	} else {
		next.Streak = 1
	}
	next.LastLoginTimestamp = now.UnixMilli()

	var added []string
	if next.Streak >= streakBadgeThreshold {
		added = next.unlock(domain.BadgeStreaker)
	}

	result := &StreakResult{Changed: true, NewBadges: added}
	err = e.commit(ctx, user, next)
	result.State = next.Clone()
	return result, err
}

// Reward applies the XP and badges configured for event
func (e *Engine) Reward(ctx context.Context, user string, event Event) (*XPResult, error) {
	r, ok := e.rewards[event]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
	return e.AddXP(ctx, user, r.XP, r.Badges...)
}

// Reset removes all stored progress for user
func (e *Engine) Reset(ctx context.Context, user string) error {
	user, err := normalizeUser(user)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(user)
	defer unlock()

	e.mu.Lock()
	delete(e.unsaved, user)
	e.mu.Unlock()

	if err := e.store.Delete(ctx, user); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// Forget drops a state whose save failed, e.g. at logout. The next access
// reads the store.
func (e *Engine) Forget(user string) {
	user, err := normalizeUser(user)
	if err != nil {
		return
	}
	e.mu.Lock()
	delete(e.unsaved, user)
	e.mu.Unlock()
}

// BadgeDetails resolves unlocked badge ids to display metadata. Ids missing
// from the registry are returned with their id as name.
func (e *Engine) BadgeDetails(state *State) []domain.Badge {
	out := make([]domain.Badge, 0, len(state.UnlockedBadges))
	for _, id := range state.UnlockedBadges {
		if b, ok := e.badges.Lookup(id); ok {
			out = append(out, b)
			continue
		}
		out = append(out, domain.Badge{ID: id, Name: id})
	}
	return out
}

// Registry returns the badge registry in use
func (e *Engine) Registry() domain.BadgeRegistry {
	return e.badges
}

// Awarder binds the engine to one user so other components can award XP
// without knowing who the learner is.
func (e *Engine) Awarder(user string) *UserAwarder {
	return &UserAwarder{engine: e, user: user}
}

// load returns the user's unsaved state if the last save failed, otherwise
// the stored state, otherwise the default state. Callers must hold the
// user's lock.
func (e *Engine) load(ctx context.Context, user string) (*State, error) {
	e.mu.RLock()
	pending, ok := e.unsaved[user]
	e.mu.RUnlock()
	if ok {
		return pending.Clone(), nil
	}

	state, err := e.store.Load(ctx, user)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load state: %w", err)
		}
		state = DefaultState()
	}
	state.normalize()
	return state, nil
}

// commit persists next with a single write. On failure next is kept in
// memory so the session goes on from it.
func (e *Engine) commit(ctx context.Context, user string, next *State) error {
	if err := e.store.Save(ctx, user, next.Clone()); err != nil {
		e.mu.Lock()
		e.unsaved[user] = next.Clone()
		e.mu.Unlock()
		e.logger.Warn("failed to persist progress", "user", user, "error", err)
		return &PersistenceWarning{User: user, Err: err}
	}

	e.mu.Lock()
	delete(e.unsaved, user)
	e.mu.Unlock()
	return nil
}

func normalizeUser(user string) (string, error) {
	user = domain.NormalizeEmail(user)
	if user == "" || strings.ContainsAny(user, "/\\") {
		return "", ErrInvalidUser
	}
	return user, nil
}

// UserAwarder awards XP to a fixed user
type UserAwarder struct {
	engine *Engine
	user   string
}

// AwardXP adds amount XP and the given badges to the bound user
func (a *UserAwarder) AwardXP(ctx context.Context, amount int, badges ...string) error {
	_, err := a.engine.AddXP(ctx, a.user, amount, badges...)
	return err
}

// userLocks hands out one mutex per user and frees it once nobody holds it
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(user string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[user]
	if !ok {
		ul = &userLock{}
		l.locks[user] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, user)
		}
		l.mu.Unlock()
	}
}
