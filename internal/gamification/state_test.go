package gamification

import "testing"

func TestLevelThreshold(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{1, 200},
		{2, 300},
		{5, 600},
	}
	for _, tt := range tests {
		if got := LevelThreshold(tt.level); got != tt.want {
			t.Errorf("LevelThreshold(%d) = %d; want %d", tt.level, got, tt.want)
		}
	}
}

func TestState_AddXP(t *testing.T) {
	tests := []struct {
		name       string
		start      State
		amount     int
		wantLevel  int
		wantXP     int
		wantGained int
	}{
		{"below threshold", State{Level: 1, XP: 0}, 150, 1, 150, 0},
		{"exact threshold", State{Level: 1, XP: 0}, 200, 2, 0, 1},
		{"crosses one", State{Level: 1, XP: 0}, 250, 2, 50, 1},
		{"crosses two", State{Level: 1, XP: 0}, 550, 3, 50, 2},
		{"tops up existing", State{Level: 2, XP: 250}, 60, 3, 10, 1},
		{"zero", State{Level: 3, XP: 10}, 0, 3, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.start
			gained := s.addXP(tt.amount)
			if s.Level != tt.wantLevel || s.XP != tt.wantXP {
				t.Errorf("after addXP(%d): level=%d xp=%d; want level=%d xp=%d",
					tt.amount, s.Level, s.XP, tt.wantLevel, tt.wantXP)
			}
			if gained != tt.wantGained {
				t.Errorf("gained = %d; want %d", gained, tt.wantGained)
			}
			if s.XP >= LevelThreshold(s.Level) {
				t.Errorf("xp %d not below threshold %d", s.XP, LevelThreshold(s.Level))
			}
		})
	}
}

func TestState_AddXP_PreservesTotal(t *testing.T) {
	s := DefaultState()
	sum := 0
	for _, amount := range []int{5, 25, 50, 10, 15, 400, 1, 999} {
		s.addXP(amount)
		sum += amount
		if s.Total() != sum {
			t.Fatalf("Total() = %d; want %d", s.Total(), sum)
		}
	}
}

func TestState_Unlock(t *testing.T) {
	s := DefaultState()

	added := s.unlock("scholar", "marathoner", "scholar", "")
	if len(added) != 2 || added[0] != "scholar" || added[1] != "marathoner" {
		t.Errorf("unlock() added = %v; want [scholar marathoner]", added)
	}

	added = s.unlock("marathoner")
	if len(added) != 0 {
		t.Errorf("unlock() of held badge added = %v", added)
	}
	if len(s.UnlockedBadges) != 2 {
		t.Errorf("UnlockedBadges = %v; want 2 entries", s.UnlockedBadges)
	}
}

func TestState_Normalize(t *testing.T) {
	s := &State{Level: 0, XP: 450, Streak: -2}
	s.normalize()

	// level 1 needs 200, level 2 needs 300
	if s.Level != 2 || s.XP != 250 {
		t.Errorf("normalize() level=%d xp=%d; want level=2 xp=250", s.Level, s.XP)
	}
	if s.Streak != 0 {
		t.Errorf("Streak = %d; want 0", s.Streak)
	}
	if s.UnlockedBadges == nil {
		t.Error("UnlockedBadges is nil")
	}
}

func TestState_Clone(t *testing.T) {
	s := &State{Level: 2, UnlockedBadges: []string{"scholar"}}
	c := s.Clone()
	c.UnlockedBadges[0] = "changed"

	if s.UnlockedBadges[0] != "scholar" {
		t.Error("Clone() shares the badge slice")
	}
}
