package daemon

import (
	"net/http"

	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

type mentorSummary struct {
	Student  string            `json:"student"`
	Progress progressResponse  `json:"progress"`
	Mistakes *mistakes.Summary `json:"mistakes"`
}

// handleMentorSummary shows the invited mentor the student's progress and
// weakest topics
func (s *Server) handleMentorSummary(w http.ResponseWriter, r *http.Request) {
	student := user(r)
	state, err := s.progress.Get(r.Context(), student)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	summary, err := s.journal.Summary(r.Context(), student)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, mentorSummary{
		Student:  student,
		Progress: s.progressView(state),
		Mistakes: summary,
	})
}

func (s *Server) handleMentorMistakes(w http.ResponseWriter, r *http.Request) {
	s.listMistakes(w, r, user(r))
}

func (s *Server) handleMentorPlan(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	s.currentPlan(w, r, user(r))
}
