package domain

import "sort"

// Well-known badge identifiers
const (
	BadgeFirstDoubt    = "first_doubt"
	BadgeTestAce       = "test_ace"
	BadgeMarathoner    = "marathoner"
	BadgeScholar       = "scholar"
	BadgePerfectionist = "perfectionist"
	BadgeStreaker      = "streaker"
)

// Badge is display metadata for an unlockable achievement
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BadgeRegistry resolves badge ids to metadata. It is never used to validate
// unlocks: unknown ids are still recorded by the gamification engine.
type BadgeRegistry interface {
	Lookup(id string) (Badge, bool)
	All() []Badge
}

// Badges is a static badge registry
type Badges map[string]Badge

// DefaultBadges returns the built-in badge set
func DefaultBadges() Badges {
	return Badges{
		BadgeFirstDoubt:    {ID: BadgeFirstDoubt, Name: "Curious Mind", Description: "Solved your first doubt."},
		BadgeTestAce:       {ID: BadgeTestAce, Name: "Test Ace", Description: "Scored 90% or more in a test."},
		BadgeMarathoner:    {ID: BadgeMarathoner, Name: "Marathoner", Description: "Completed a full exam simulation."},
		BadgeScholar:       {ID: BadgeScholar, Name: "Scholar", Description: "Generated your first learning plan."},
		BadgePerfectionist: {ID: BadgePerfectionist, Name: "Perfectionist", Description: "Reviewed 10 mistakes in your journal."},
		BadgeStreaker:      {ID: BadgeStreaker, Name: "Streaker", Description: "Maintained a 3-day login streak."},
	}
}

// Lookup returns the badge with the given id
func (b Badges) Lookup(id string) (Badge, bool) {
	badge, ok := b[id]
	return badge, ok
}

// All returns every badge sorted by id
func (b Badges) All() []Badge {
	all := make([]Badge, 0, len(b))
	for _, badge := range b {
		all = append(all, badge)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

var _ BadgeRegistry = Badges(nil)
