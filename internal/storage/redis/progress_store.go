package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/redis/go-redis/v9"
)

const (
	progressPrefix = "prepwise:progress:"
	leaderboardKey = "prepwise:leaderboard"
)

// ProgressStore keeps each user's state as a JSON string and mirrors total
// XP into a sorted set so that ranking never loads every state.
// Ties in total XP rank in reverse lexical order of the email.
type ProgressStore struct {
	rdb *redis.Client
}

// NewProgressStore wraps an existing client
func NewProgressStore(rdb *redis.Client) *ProgressStore {
	return &ProgressStore{rdb: rdb}
}

func (s *ProgressStore) Load(ctx context.Context, user string) (*gamification.State, error) {
	data, err := s.rdb.Get(ctx, progressPrefix+user).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gamification.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	var st gamification.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &st, nil
}

// Save writes the state and its leaderboard score in one transaction
func (s *ProgressStore) Save(ctx context.Context, user string, st *gamification.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, progressPrefix+user, data, 0)
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(st.Total()), Member: user})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Delete(ctx context.Context, user string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, progressPrefix+user)
		pipe.ZRem(ctx, leaderboardKey, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if del.Val() == 0 {
		return gamification.ErrNotFound
	}
	return nil
}

func (s *ProgressStore) List(ctx context.Context) ([]string, error) {
	users, err := s.rdb.ZRange(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	slices.Sort(users)
	return users, nil
}

// Top returns the n users with the most total XP
func (s *ProgressStore) Top(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	users, err := s.rdb.ZRevRange(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rank users: %w", err)
	}
	return users, nil
}

// Rank returns the 1-based leaderboard position of user
func (s *ProgressStore) Rank(ctx context.Context, user string) (int, error) {
	rank, err := s.rdb.ZRevRank(ctx, leaderboardKey, user).Result()
	if errors.Is(err, redis.Nil) {
		return 0, gamification.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("rank user: %w", err)
	}
	return int(rank) + 1, nil
}

var (
	_ gamification.Store  = (*ProgressStore)(nil)
	_ gamification.Ranker = (*ProgressStore)(nil)
)
