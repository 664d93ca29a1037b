package mistakes

import (
	"context"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
)

// Store persists each user's journal, newest mistake first. List returns an
// empty slice for a user with no journal.
type Store interface {
	List(ctx context.Context, user string) ([]domain.Mistake, error)
	Add(ctx context.Context, user string, m domain.Mistake) error
	Clear(ctx context.Context, user string) error
}

// Rewarder grants reward-table events
type Rewarder interface {
	Reward(ctx context.Context, user string, event gamification.Event) (*gamification.XPResult, error)
}

// Publisher hands mistakes to the event queue
type Publisher interface {
	PublishMistake(ctx context.Context, user string, m domain.Mistake) error
}

// Ensure sinks implement exam.MistakeSink
var (
	_ exam.MistakeSink = (*UserSink)(nil)
	_ exam.MistakeSink = (*QueueSink)(nil)
)

// Ensure the JSON store implements Store
var _ Store = (*JSONStore)(nil)

// Ensure the gamification engine can reward journal reviews
var _ Rewarder = (*gamification.Engine)(nil)
