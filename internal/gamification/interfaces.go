package gamification

import "context"

// Store persists one State per user, keyed by user identity (email).
// Load returns ErrNotFound when the user has no stored state.
type Store interface {
	Load(ctx context.Context, user string) (*State, error)
	Save(ctx context.Context, user string, state *State) error
	Delete(ctx context.Context, user string) error
	List(ctx context.Context) ([]string, error)
}

// Ranker is implemented by stores that can rank users without loading every
// state, such as a Redis sorted set. Top returns users ordered by total XP.
type Ranker interface {
	Top(ctx context.Context, n int) ([]string, error)
	Rank(ctx context.Context, user string) (int, error)
}

// Publisher announces applied XP awards to other services
type Publisher interface {
	PublishXPAwarded(ctx context.Context, user string, amount, level int, badges []string) error
}

// ProgressService is the surface used by the daemon and the MCP server
type ProgressService interface {
	Get(ctx context.Context, user string) (*State, error)
	AddXP(ctx context.Context, user string, amount int, badges ...string) (*XPResult, error)
	CheckAndApplyStreak(ctx context.Context, user string) (*StreakResult, error)
	Reward(ctx context.Context, user string, event Event) (*XPResult, error)
	Leaderboard(ctx context.Context, currentUser string, n int) ([]LeaderboardEntry, error)
	Reset(ctx context.Context, user string) error
}

// Ensure Engine implements ProgressService
var _ ProgressService = (*Engine)(nil)

// Ensure Store (JSON) implements the Store interface
var _ Store = (*JSONStore)(nil)
