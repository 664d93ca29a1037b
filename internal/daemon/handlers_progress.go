package daemon

import (
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
)

// maxLeaderboard caps the n query parameter
const maxLeaderboard = 100

type progressResponse struct {
	*gamification.State
	TotalXP     int            `json:"total_xp"`
	NextLevelXP int            `json:"next_level_xp"`
	Badges      []domain.Badge `json:"badges"`
}

type streakResponse struct {
	*gamification.StreakResult
	Warnings []string `json:"warnings,omitempty"`
}

type xpResponse struct {
	*gamification.XPResult
	Warnings []string `json:"warnings,omitempty"`
}

type eventRequest struct {
	Event gamification.Event `json:"event"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	state, err := s.progress.Get(r.Context(), user(r))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.progressView(state))
}

func (s *Server) progressView(state *gamification.State) progressResponse {
	return progressResponse{
		State:       state,
		TotalXP:     state.Total(),
		NextLevelXP: gamification.LevelThreshold(state.Level),
		Badges:      s.progress.BadgeDetails(state),
	}
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	res, err := s.progress.CheckAndApplyStreak(r.Context(), user(r))
	if err != nil && !gamification.IsPersistenceWarning(err) {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, streakResponse{StreakResult: res, Warnings: warnings(err)})
}

// handleEvent applies a reward-table event reported by a client feature
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.progress.Reward(r.Context(), user(r), req.Event)
	if err != nil && !gamification.IsPersistenceWarning(err) {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, xpResponse{XPResult: res, Warnings: warnings(err)})
}

// handleReset wipes the caller's progress, mistake journal and plan
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	u := user(r)
	if err := s.progress.Reset(r.Context(), u); err != nil {
		s.jsonError(w, r, err)
		return
	}
	if err := s.journal.Clear(r.Context(), u); err != nil {
		s.jsonError(w, r, err)
		return
	}
	if s.coach != nil {
		if err := s.coach.ClearPlan(r.Context(), u); err != nil {
			s.jsonError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxLeaderboard {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "n must be between 1 and 100"})
			return
		}
		n = parsed
	}

	entries, err := s.progress.Leaderboard(r.Context(), user(r), n)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"badges": s.progress.Registry().All()})
}

type presetView struct {
	Mode            domain.ExamMode     `json:"mode"`
	Subjects        map[string][]string `json:"subjects"`
	TotalQuestions  int                 `json:"total_questions"`
	DurationMinutes int                 `json:"duration_minutes"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	out := make([]presetView, 0, len(s.presets))
	for _, mode := range []domain.ExamMode{domain.ExamJEE, domain.ExamBITSAT, domain.ExamVITEEE} {
		p, ok := s.presets[mode]
		if !ok {
			continue
		}
		out = append(out, presetView{
			Mode:            p.Mode,
			Subjects:        p.Subjects,
			TotalQuestions:  p.TotalQuestions,
			DurationMinutes: int(p.Duration.Minutes()),
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"presets": out})
}

// warnings reports a persistence warning alongside an applied result
func warnings(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}
