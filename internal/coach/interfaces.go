package coach

import (
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

var (
	_ WeakTopicSource = (*mistakes.Journal)(nil)
	_ Rewarder        = (*gamification.Engine)(nil)
	_ PlanStore       = (*JSONPlanStore)(nil)
)
