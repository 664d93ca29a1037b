package gamification

import (
	"context"
	"testing"
)

func seedLeaderboard(t *testing.T, e *Engine, xp map[string]int) {
	t.Helper()
	for user, amount := range xp {
		if _, err := e.AddXP(context.Background(), user, amount); err != nil {
			t.Fatalf("AddXP(%s) error = %v", user, err)
		}
	}
}

func TestEngine_Leaderboard_OrdersByTotalXP(t *testing.T) {
	e := newTestEngine(newMemStore())
	seedLeaderboard(t, e, map[string]int{
		"a@x.io": 150, // level 1, xp 150
		"b@x.io": 210, // level 2, xp 10
		"c@x.io": 900, // level 4, xp 0
	})

	entries, err := e.Leaderboard(context.Background(), "a@x.io", 10)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	want := []string{"c@x.io", "b@x.io", "a@x.io"}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d; want %d", len(entries), len(want))
	}
	for i, u := range want {
		if entries[i].User != u || entries[i].Rank != i+1 {
			t.Errorf("entries[%d] = %+v; want %s at rank %d", i, entries[i], u, i+1)
		}
	}
	if !entries[2].IsCurrentUser {
		t.Error("current user not flagged")
	}
}

func TestEngine_Leaderboard_TieBreaksByUser(t *testing.T) {
	e := newTestEngine(newMemStore())
	seedLeaderboard(t, e, map[string]int{"zed@x.io": 40, "amy@x.io": 40})

	entries, _ := e.Leaderboard(context.Background(), "", 10)
	if entries[0].User != "amy@x.io" {
		t.Errorf("entries[0] = %s; want amy@x.io", entries[0].User)
	}
}

func TestEngine_Leaderboard_AppendsCurrentUser(t *testing.T) {
	e := newTestEngine(newMemStore())
	seedLeaderboard(t, e, map[string]int{
		"a@x.io": 500,
		"b@x.io": 400,
		"c@x.io": 300,
		"me@x.io": 5,
	})

	entries, err := e.Leaderboard(context.Background(), "me@x.io", 2)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d; want top 2 plus current user", len(entries))
	}
	last := entries[2]
	if last.User != "me@x.io" || last.Rank != 4 || !last.IsCurrentUser {
		t.Errorf("last entry = %+v; want me@x.io at rank 4", last)
	}
}

// rankedStore adds a fixed ranking on top of memStore
type rankedStore struct {
	*memStore
	order []string
}

func (r *rankedStore) Top(ctx context.Context, n int) ([]string, error) {
	if n > len(r.order) {
		n = len(r.order)
	}
	return r.order[:n], nil
}

func (r *rankedStore) Rank(ctx context.Context, user string) (int, error) {
	for i, u := range r.order {
		if u == user {
			return i + 1, nil
		}
	}
	return 0, ErrNotFound
}

func TestEngine_Leaderboard_UsesRanker(t *testing.T) {
	store := &rankedStore{memStore: newMemStore(), order: []string{"b@x.io", "a@x.io", "me@x.io"}}
	e := newTestEngine(store)
	seedLeaderboard(t, e, map[string]int{"a@x.io": 10, "b@x.io": 20, "me@x.io": 5})

	entries, err := e.Leaderboard(context.Background(), "me@x.io", 1)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d; want 2", len(entries))
	}
	if entries[0].User != "b@x.io" || entries[1].User != "me@x.io" || entries[1].Rank != 3 {
		t.Errorf("entries = %+v", entries)
	}
}
