package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/prepwise/internal/gamification"
)

// ProgressStore persists gamification state and ranks users by total XP.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a new SQLite-backed progress store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Load reads the state of user.
func (s *ProgressStore) Load(ctx context.Context, user string) (*gamification.State, error) {
	var st gamification.State
	var badges string
	err := s.db.QueryRowContext(ctx, `
		SELECT xp, level, unlocked_badges, streak, last_login_timestamp
		FROM progress WHERE user_email = ?`, user,
	).Scan(&st.XP, &st.Level, &badges, &st.Streak, &st.LastLoginTimestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gamification.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if err := json.Unmarshal([]byte(badges), &st.UnlockedBadges); err != nil {
		return nil, fmt.Errorf("unmarshal unlocked_badges: %w", err)
	}
	return &st, nil
}

// Save upserts the state of user.
func (s *ProgressStore) Save(ctx context.Context, user string, st *gamification.State) error {
	badges, err := json.Marshal(st.UnlockedBadges)
	if err != nil {
		return fmt.Errorf("marshal unlocked_badges: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (user_email, xp, level, total_xp, unlocked_badges, streak, last_login_timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_email) DO UPDATE SET
			xp=excluded.xp,
			level=excluded.level,
			total_xp=excluded.total_xp,
			unlocked_badges=excluded.unlocked_badges,
			streak=excluded.streak,
			last_login_timestamp=excluded.last_login_timestamp,
			updated_at=excluded.updated_at`,
		user, st.XP, st.Level, st.Total(), string(badges), st.Streak, st.LastLoginTimestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Delete removes the state of user.
func (s *ProgressStore) Delete(ctx context.Context, user string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE user_email = ?", user)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return gamification.ErrNotFound
	}
	return nil
}

// List returns every user with stored progress.
func (s *ProgressStore) List(ctx context.Context) ([]string, error) {
	return s.users(ctx, "SELECT user_email FROM progress ORDER BY user_email")
}

// Top returns the n users with the most total XP.
func (s *ProgressStore) Top(ctx context.Context, n int) ([]string, error) {
	return s.users(ctx, "SELECT user_email FROM progress ORDER BY total_xp DESC, user_email LIMIT ?", n)
}

// Rank returns the 1-based leaderboard position of user.
func (s *ProgressStore) Rank(ctx context.Context, user string) (int, error) {
	var rank int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 + (
			SELECT COUNT(*) FROM progress o
			WHERE o.total_xp > p.total_xp OR (o.total_xp = p.total_xp AND o.user_email < p.user_email)
		)
		FROM progress p WHERE p.user_email = ?`, user,
	).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, gamification.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("rank user: %w", err)
	}
	return rank, nil
}

func (s *ProgressStore) users(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
