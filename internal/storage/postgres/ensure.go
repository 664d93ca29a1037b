package postgres

import (
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

var (
	_ gamification.Store  = (*ProgressStore)(nil)
	_ gamification.Ranker = (*ProgressStore)(nil)
	_ mistakes.Store      = (*MistakeStore)(nil)
)
