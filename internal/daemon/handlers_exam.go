package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
)

// startExamRequest starts either a full simulation of Preset or a custom
// attempt over Topics
type startExamRequest struct {
	Preset          string   `json:"preset,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	TotalQuestions  int      `json:"total_questions,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	ExamMode        string   `json:"exam_mode,omitempty"`
}

type questionRequest struct {
	Index  int    `json:"index"`
	Option string `json:"option,omitempty"`
}

type attemptResponse struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Snapshot  exam.Snapshot `json:"snapshot"`
}

// examConfig turns a start request into an exam config, filling in the
// configured defaults
func (s *Server) examConfig(req startExamRequest) (exam.Config, error) {
	diffName := req.Difficulty
	if diffName == "" {
		diffName = s.cfg.Exam.DefaultDifficulty
	}
	difficulty := domain.DifficultyMedium
	if diffName != "" {
		d, err := domain.ParseDifficulty(diffName)
		if err != nil {
			return exam.Config{}, err
		}
		difficulty = d
	}

	if req.Preset != "" {
		mode, err := domain.ParseExamMode(req.Preset)
		if err != nil {
			return exam.Config{}, err
		}
		preset, ok := s.presets[mode]
		if !ok {
			return exam.Config{}, fmt.Errorf("%w: %q", domain.ErrUnknownExamMode, req.Preset)
		}
		return exam.ConfigFromPreset(preset, difficulty), nil
	}

	cfg := exam.Config{
		TotalQuestions: req.TotalQuestions,
		Topics:         req.Topics,
		Difficulty:     difficulty,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
	}
	modeName := req.ExamMode
	if modeName == "" {
		modeName = s.cfg.Exam.DefaultMode
	}
	if modeName != "" {
		mode, err := domain.ParseExamMode(modeName)
		if err != nil {
			return exam.Config{}, err
		}
		cfg.ExamMode = mode
	}
	return cfg, nil
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := s.examConfig(req)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}

	attempt, err := s.exams.Start(r.Context(), user(r), cfg)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, attemptResponse{
		ID:        attempt.ID,
		CreatedAt: attempt.CreatedAt,
		Snapshot:  attempt.Engine().Snapshot(),
	})
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"attempts": s.exams.List(user(r))})
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.exams.Get(user(r), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, attemptResponse{
		ID:        attempt.ID,
		CreatedAt: attempt.CreatedAt,
		Snapshot:  attempt.Engine().Snapshot(),
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.exams.Answer(user(r), r.PathValue("id"), req.Index, req.Option)
	s.snapshotResponse(w, r, snap, err)
}

func (s *Server) handleToggleReview(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.exams.ToggleReview(user(r), r.PathValue("id"), req.Index)
	s.snapshotResponse(w, r, snap, err)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.exams.Navigate(user(r), r.PathValue("id"), req.Index)
	s.snapshotResponse(w, r, snap, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := s.exams.Submit(r.Context(), user(r), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"result":  result,
		"percent": result.Percent(),
	})
}

func (s *Server) snapshotResponse(w http.ResponseWriter, r *http.Request, snap exam.Snapshot, err error) {
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}
