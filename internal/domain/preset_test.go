package domain

import (
	"testing"
	"time"
)

func TestDefaultPresets(t *testing.T) {
	presets := DefaultPresets()

	tests := []struct {
		mode      ExamMode
		questions int
		duration  time.Duration
		subjects  int
	}{
		{ExamJEE, 75, 3 * time.Hour, 3},
		{ExamBITSAT, 130, 3 * time.Hour, 5},
		{ExamVITEEE, 125, 150 * time.Minute, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			p, ok := presets[tt.mode]
			if !ok {
				t.Fatalf("preset %s missing", tt.mode)
			}
			if p.TotalQuestions != tt.questions {
				t.Errorf("TotalQuestions = %d; want %d", p.TotalQuestions, tt.questions)
			}
			if p.Duration != tt.duration {
				t.Errorf("Duration = %v; want %v", p.Duration, tt.duration)
			}
			if len(p.SubjectNames()) != tt.subjects {
				t.Errorf("SubjectNames() = %v; want %d subjects", p.SubjectNames(), tt.subjects)
			}
		})
	}
}

func TestParseExamMode(t *testing.T) {
	if m, err := ParseExamMode("bitsat"); err != nil || m != ExamBITSAT {
		t.Errorf("ParseExamMode(bitsat) = %q, %v; want BITSAT", m, err)
	}
	if _, err := ParseExamMode("SAT"); err == nil {
		t.Error("ParseExamMode(SAT) expected error")
	}
}

func TestDefaultBadges(t *testing.T) {
	badges := DefaultBadges()

	b, ok := badges.Lookup(BadgeStreaker)
	if !ok {
		t.Fatal("Lookup(streaker) not found")
	}
	if b.Name != "Streaker" {
		t.Errorf("Name = %q; want Streaker", b.Name)
	}

	if _, ok := badges.Lookup("night_owl"); ok {
		t.Error("Lookup(night_owl) should not be found")
	}

	all := badges.All()
	if len(all) != 6 {
		t.Fatalf("All() returned %d badges; want 6", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID > all[i].ID {
			t.Errorf("All() not sorted: %q before %q", all[i-1].ID, all[i].ID)
		}
	}
}
