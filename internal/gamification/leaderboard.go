package gamification

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	User          string `json:"user"`
	Level         int    `json:"level"`
	XP            int    `json:"xp"`
	TotalXP       int    `json:"total_xp"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// Leaderboard ranks users by total XP earned (level first, then XP inside
// the level) and returns the top n. The current user is appended with their
// real rank when they fall outside the top n.
func (e *Engine) Leaderboard(ctx context.Context, currentUser string, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	current, _ := normalizeUser(currentUser)

	if ranker, ok := e.store.(Ranker); ok {
		return e.rankedLeaderboard(ctx, ranker, current, n)
	}

	users, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, user := range users {
		state, err := e.Get(ctx, user)
		if err != nil {
			e.logger.Warn("skipping user in leaderboard", "user", user, "error", err)
			continue
		}
		entries = append(entries, entryFor(user, state, current))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalXP != entries[j].TotalXP {
			return entries[i].TotalXP > entries[j].TotalXP
		}
		return entries[i].User < entries[j].User
	})

	var self *LeaderboardEntry
	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].IsCurrentUser {
			self = &entries[i]
		}
	}

	if len(entries) <= n {
		return entries, nil
	}
	top := append([]LeaderboardEntry(nil), entries[:n]...)
	if self != nil && self.Rank > n {
		top = append(top, *self)
	}
	return top, nil
}

func (e *Engine) rankedLeaderboard(ctx context.Context, ranker Ranker, current string, n int) ([]LeaderboardEntry, error) {
	users, err := ranker.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("rank users: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(users)+1)
	seenSelf := false
	for i, user := range users {
		state, err := e.Get(ctx, user)
		if err != nil {
			return nil, err
		}
		entry := entryFor(user, state, current)
		entry.Rank = i + 1
		seenSelf = seenSelf || entry.IsCurrentUser
		entries = append(entries, entry)
	}

	if current != "" && !seenSelf {
		rank, err := ranker.Rank(ctx, current)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("rank current user: %w", err)
		}
		if err == nil {
			state, err := e.Get(ctx, current)
			if err != nil {
				return nil, err
			}
			entry := entryFor(current, state, current)
			entry.Rank = rank
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func entryFor(user string, state *State, current string) LeaderboardEntry {
	return LeaderboardEntry{
		User:          user,
		Level:         state.Level,
		XP:            state.XP,
		TotalXP:       state.Total(),
		IsCurrentUser: user == current,
	}
}
