package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore implements gamification.Store and gamification.Ranker
type ProgressStore struct {
	pool *pgxpool.Pool
}

// NewProgressStore creates a new PostgreSQL progress store
func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

// Load reads the state of user
func (s *ProgressStore) Load(ctx context.Context, user string) (*gamification.State, error) {
	query := `
		SELECT xp, level, unlocked_badges, streak, last_login_timestamp
		FROM progress WHERE user_email = $1
	`
	st := &gamification.State{}
	err := s.pool.QueryRow(ctx, query, user).
		Scan(&st.XP, &st.Level, &st.UnlockedBadges, &st.Streak, &st.LastLoginTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gamification.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return st, nil
}

// Save upserts the state of user
func (s *ProgressStore) Save(ctx context.Context, user string, st *gamification.State) error {
	badges := st.UnlockedBadges
	if badges == nil {
		badges = []string{}
	}
	query := `
		INSERT INTO progress (user_email, xp, level, total_xp, unlocked_badges, streak, last_login_timestamp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_email) DO UPDATE SET
			xp = EXCLUDED.xp,
			level = EXCLUDED.level,
			total_xp = EXCLUDED.total_xp,
			unlocked_badges = EXCLUDED.unlocked_badges,
			streak = EXCLUDED.streak,
			last_login_timestamp = EXCLUDED.last_login_timestamp,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query, user, st.XP, st.Level, st.Total(), badges, st.Streak, st.LastLoginTimestamp)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Delete removes the state of user
func (s *ProgressStore) Delete(ctx context.Context, user string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM progress WHERE user_email = $1`, user)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gamification.ErrNotFound
	}
	return nil
}

// List returns every user with stored progress
func (s *ProgressStore) List(ctx context.Context) ([]string, error) {
	return s.users(ctx, `SELECT user_email FROM progress ORDER BY user_email`)
}

// Top returns the n users with the most total XP
func (s *ProgressStore) Top(ctx context.Context, n int) ([]string, error) {
	return s.users(ctx, `SELECT user_email FROM progress ORDER BY total_xp DESC, user_email LIMIT $1`, n)
}

// Rank returns the 1-based leaderboard position of user
func (s *ProgressStore) Rank(ctx context.Context, user string) (int, error) {
	query := `
		SELECT 1 + (
			SELECT COUNT(*) FROM progress o
			WHERE o.total_xp > p.total_xp OR (o.total_xp = p.total_xp AND o.user_email < p.user_email)
		)
		FROM progress p WHERE p.user_email = $1
	`
	var rank int
	err := s.pool.QueryRow(ctx, query, user).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, gamification.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("rank user: %w", err)
	}
	return rank, nil
}

func (s *ProgressStore) users(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}
