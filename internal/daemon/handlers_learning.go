package daemon

import (
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/practice"
)

type gradeRequest struct {
	Questions []domain.Question `json:"questions"`
	Answers   map[string]string `json:"answers"`
}

type reviewedRequest struct {
	Count int `json:"count"`
}

type doubtRequest struct {
	Question string `json:"question"`
}

type notesRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleGeneratePractice(w http.ResponseWriter, r *http.Request) {
	var req practice.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.Difficulty == "" && s.cfg.Exam.DefaultDifficulty != "" {
		req.Difficulty = domain.Difficulty(s.cfg.Exam.DefaultDifficulty)
	}

	test, err := s.practice.Generate(r.Context(), user(r), req)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, test)
}

func (s *Server) handleGradePractice(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if !s.decode(w, r, &req) {
		return
	}

	grade, err := s.practice.Grade(r.Context(), user(r), req.Questions, req.Answers)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, grade)
}

func (s *Server) handleListMistakes(w http.ResponseWriter, r *http.Request) {
	s.listMistakes(w, r, user(r))
}

func (s *Server) listMistakes(w http.ResponseWriter, r *http.Request, u string) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	list, err := s.journal.List(r.Context(), u, limit)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"mistakes": list, "count": len(list)})
}

func (s *Server) handleClearMistakes(w http.ResponseWriter, r *http.Request) {
	if err := s.journal.Clear(r.Context(), user(r)); err != nil {
		s.jsonError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMistakesReviewed records a journal review session
func (s *Server) handleMistakesReviewed(w http.ResponseWriter, r *http.Request) {
	var req reviewedRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.journal.Reviewed(r.Context(), user(r), req.Count)
	if err != nil && res == nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"rewarded": res != nil,
		"xp":       xpResponse{XPResult: res, Warnings: warnings(err)},
	})
}

func (s *Server) handleWeakTopics(w http.ResponseWriter, r *http.Request) {
	n, ok := queryInt(w, r, "n")
	if !ok {
		return
	}
	topics, err := s.journal.WeakTopics(r.Context(), user(r), n)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"topics": topics})
}

// requireCoach reports whether the coach is available, answering 503 if not
func (s *Server) requireCoach(w http.ResponseWriter) bool {
	if s.coach == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no language model is configured"})
		return false
	}
	return true
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	res, err := s.coach.Plan(r.Context(), user(r))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	s.currentPlan(w, r, user(r))
}

func (s *Server) currentPlan(w http.ResponseWriter, r *http.Request, u string) {
	plan, err := s.coach.CurrentPlan(r.Context(), u)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, plan)
}

func (s *Server) handleClearPlan(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	if err := s.coach.ClearPlan(r.Context(), user(r)); err != nil {
		s.jsonError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSolveDoubt(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	var req doubtRequest
	if !s.decode(w, r, &req) {
		return
	}
	sol, err := s.coach.SolveDoubt(r.Context(), user(r), req.Question)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sol)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoach(w) {
		return
	}
	var req notesRequest
	if !s.decode(w, r, &req) {
		return
	}
	notes, err := s.coach.Notes(r.Context(), req.Topic)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"topic": req.Topic, "notes": notes})
}

// queryInt parses an optional non-negative integer query parameter
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: name + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
