package gamification

import "github.com/felixgeelhaar/prepwise/internal/domain"

// Event names an XP-worthy action reported by a feature
type Event string

const (
	EventTestGenerated Event = "test_generated"
	EventTestCompleted Event = "test_completed"
	EventTestAced      Event = "test_aced"
	EventDoubtSolved   Event = "doubt_solved"
	EventPlanGenerated Event = "plan_generated"
	EventExamFinished  Event = "exam_finished"
	EventJournalReview Event = "journal_reviewed"
)

// Reward is the XP and badges granted for an event
type Reward struct {
	XP     int      `json:"xp" yaml:"xp"`
	Badges []string `json:"badges,omitempty" yaml:"badges,omitempty"`
}

// Rewards maps events to their rewards
type Rewards map[Event]Reward

// DefaultRewards returns the built-in reward table. A test scoring 90% or
// more earns both EventTestCompleted and EventTestAced.
func DefaultRewards() Rewards {
	return Rewards{
		EventTestGenerated: {XP: 5},
		EventTestCompleted: {XP: 25},
		EventTestAced:      {XP: 25, Badges: []string{domain.BadgeTestAce}},
		EventDoubtSolved:   {XP: 10, Badges: []string{domain.BadgeFirstDoubt}},
		EventPlanGenerated: {XP: 15, Badges: []string{domain.BadgeScholar}},
		EventExamFinished:  {XP: 50, Badges: []string{domain.BadgeMarathoner}},
		EventJournalReview: {XP: 0, Badges: []string{domain.BadgePerfectionist}},
	}
}

// Merge returns a copy of r with entries from override replacing its own
func (r Rewards) Merge(override Rewards) Rewards {
	out := make(Rewards, len(r)+len(override))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
