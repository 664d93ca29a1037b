package daemon

import (
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mentorLoginRequest struct {
	StudentEmail string `json:"student_email"`
	InviteCode   string `json:"invite_code"`
}

// handleLogin signs a student in, registering unknown emails on the spot.
// A successful login also counts towards the daily streak.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}

	resp := map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	}
	streak, err := s.progress.CheckAndApplyStreak(r.Context(), res.User.Email)
	if streak != nil {
		resp["streak"] = streakResponse{StreakResult: streak, Warnings: warnings(err)}
	} else {
		s.logger.Warn("streak check failed at login", "user", res.User.Email, "error", err)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleMentorLogin(w http.ResponseWriter, r *http.Request) {
	var req mentorLoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.auth.LoginMentor(r.Context(), req.StudentEmail, req.InviteCode)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	invite, err := s.auth.CreateInvite(r.Context(), user(r))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, invite)
}
