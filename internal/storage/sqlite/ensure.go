package sqlite

import (
	"github.com/felixgeelhaar/prepwise/internal/auth"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ gamification.Store  = (*ProgressStore)(nil)
	_ gamification.Ranker = (*ProgressStore)(nil)
	_ mistakes.Store      = (*MistakeStore)(nil)
	_ auth.UserStore      = (*UserStore)(nil)
	_ auth.InviteStore    = (*UserStore)(nil)
)
