package gamification

import "slices"

// State is a learner's progress ledger. XP is the remainder inside the
// current level; it always stays below LevelThreshold(Level).
type State struct {
	XP                 int      `json:"xp"`
	Level              int      `json:"level"`
	UnlockedBadges     []string `json:"unlocked_badges"`
	Streak             int      `json:"streak"`
	LastLoginTimestamp int64    `json:"last_login_timestamp"` // epoch ms, 0 = never
}

// DefaultState is the state of a user with no stored progress
func DefaultState() *State {
	return &State{
		Level:          1,
		UnlockedBadges: []string{},
	}
}

// LevelThreshold is the XP needed to advance past level
func LevelThreshold(level int) int {
	return (level + 1) * 100
}

// TotalXP converts a (level, xp) pair into cumulative XP earned since level 1
func TotalXP(level, xp int) int {
	total := xp
	for l := 1; l < level; l++ {
		total += LevelThreshold(l)
	}
	return total
}

// Total returns the cumulative XP represented by s
func (s *State) Total() int {
	return TotalXP(s.Level, s.XP)
}

// HasBadge reports whether id is already unlocked
func (s *State) HasBadge(id string) bool {
	return slices.Contains(s.UnlockedBadges, id)
}

// Clone returns a deep copy of s
func (s *State) Clone() *State {
	c := *s
	c.UnlockedBadges = slices.Clone(s.UnlockedBadges)
	if c.UnlockedBadges == nil {
		c.UnlockedBadges = []string{}
	}
	return &c
}

// normalize repairs values that can only come from hand-edited or legacy records
func (s *State) normalize() {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.XP < 0 {
		s.XP = 0
	}
	if s.Streak < 0 {
		s.Streak = 0
	}
	if s.UnlockedBadges == nil {
		s.UnlockedBadges = []string{}
	}
	// Carry over any stored XP that already crosses a threshold.
	s.addXP(0)
}

// addXP adds amount and levels up as many times as the total allows.
// It returns the number of levels gained.
func (s *State) addXP(amount int) int {
	xp := s.XP + amount
	gained := 0
	for xp >= LevelThreshold(s.Level) {
		xp -= LevelThreshold(s.Level)
		s.Level++
		gained++
	}
	s.XP = xp
	return gained
}

// unlock adds ids that are not yet unlocked, preserving order, and returns
// the newly unlocked ones.
func (s *State) unlock(ids ...string) []string {
	var added []string
	for _, id := range ids {
		if id == "" || s.HasBadge(id) {
			continue
		}
		s.UnlockedBadges = append(s.UnlockedBadges, id)
		added = append(added, id)
	}
	return added
}
