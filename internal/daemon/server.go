// Package daemon serves the prepwise HTTP API used by the CLI, the editor
// integrations and the browser client.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/auth"
	"github.com/felixgeelhaar/prepwise/internal/coach"
	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/llm"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
	"github.com/felixgeelhaar/prepwise/internal/practice"
	"github.com/gorilla/websocket"
)

// Version is reported by the status route
const Version = "0.3.0"

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// Server represents the prepwise daemon HTTP server
type Server struct {
	cfg       *config.LocalConfig
	server    *http.Server
	router    *http.ServeMux
	handler   http.Handler
	logger    *slog.Logger
	startedAt time.Time

	// Services
	auth        auth.Authenticator
	progress    *gamification.Engine
	exams       *exam.Service
	practice    *practice.Service
	journal     *mistakes.Journal
	coach       *coach.Coach
	llmRegistry llm.LLMRegistry
	presets     map[domain.ExamMode]domain.ExamPreset

	limiter  *RateLimiter
	upgrader websocket.Upgrader
}

// ServerConfig holds configuration for creating a new server. Every service
// except Coach and Registry is required.
type ServerConfig struct {
	Config    *config.LocalConfig
	Auth      auth.Authenticator
	Progress  *gamification.Engine
	Exams     *exam.Service
	Practice  *practice.Service
	Journal   *mistakes.Journal
	Coach     *coach.Coach
	Registry  llm.LLMRegistry
	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Config == nil:
		return nil, errors.New("daemon: config is required")
	case cfg.Auth == nil:
		return nil, errors.New("daemon: auth service is required")
	case cfg.Progress == nil:
		return nil, errors.New("daemon: progress engine is required")
	case cfg.Exams == nil:
		return nil, errors.New("daemon: exam service is required")
	case cfg.Practice == nil:
		return nil, errors.New("daemon: practice service is required")
	case cfg.Journal == nil:
		return nil, errors.New("daemon: mistake journal is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimit == (RateLimitConfig{}) {
		cfg.RateLimit = DefaultRateLimitConfig()
	}

	s := &Server{
		cfg:         cfg.Config,
		router:      http.NewServeMux(),
		logger:      logger.With("component", "daemon"),
		startedAt:   time.Now(),
		auth:        cfg.Auth,
		progress:    cfg.Progress,
		exams:       cfg.Exams,
		practice:    cfg.Practice,
		journal:     cfg.Journal,
		coach:       cfg.Coach,
		llmRegistry: cfg.Registry,
		presets:     cfg.Config.ExamPresets(),
		limiter:     NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.Burst),
		upgrader:    buildUpgrader(cfg.Config.Daemon.AllowedOrigins),
	}

	s.setupRoutes()

	s.handler = s.router
	for _, mw := range []func(http.Handler) http.Handler{
		authMiddleware(s.auth),
		corsMiddleware(cfg.Config.Daemon.AllowedOrigins),
		loggingMiddleware(s.logger),
		correlationIDMiddleware,
		recoveryMiddleware(s.logger),
	} {
		s.handler = mw(s.handler)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second, // model calls can be slow
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	student := func(h http.HandlerFunc) http.HandlerFunc { return requireRole(domain.RoleStudent, h) }
	mentor := func(h http.HandlerFunc) http.HandlerFunc { return requireRole(domain.RoleMentor, h) }
	limited := func(h http.HandlerFunc) http.HandlerFunc { return student(rateLimit(s.limiter, s.logger, h)) }

	// Health & config
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/presets", s.handlePresets)
	s.router.HandleFunc("GET /v1/badges", s.handleBadges)

	// Auth
	s.router.HandleFunc("POST /v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /v1/auth/mentor", s.handleMentorLogin)
	s.router.HandleFunc("POST /v1/me/invite", student(s.handleInvite))

	// Gamification
	s.router.HandleFunc("GET /v1/me/progress", student(s.handleProgress))
	s.router.HandleFunc("POST /v1/me/streak", student(s.handleStreak))
	s.router.HandleFunc("POST /v1/me/events", student(s.handleEvent))
	s.router.HandleFunc("DELETE /v1/me", student(s.handleReset))
	s.router.HandleFunc("GET /v1/leaderboard", student(s.handleLeaderboard))

	// Exams
	s.router.HandleFunc("GET /v1/exams", student(s.handleListExams))
	s.router.HandleFunc("POST /v1/exams", limited(s.handleStartExam))
	s.router.HandleFunc("GET /v1/exams/{id}", student(s.handleGetExam))
	s.router.HandleFunc("POST /v1/exams/{id}/answer", student(s.handleAnswer))
	s.router.HandleFunc("POST /v1/exams/{id}/review", student(s.handleToggleReview))
	s.router.HandleFunc("POST /v1/exams/{id}/navigate", student(s.handleNavigate))
	s.router.HandleFunc("POST /v1/exams/{id}/submit", student(s.handleSubmit))
	s.router.HandleFunc("GET /v1/exams/{id}/stream", student(s.handleExamStream))

	// Practice
	s.router.HandleFunc("POST /v1/practice", limited(s.handleGeneratePractice))
	s.router.HandleFunc("POST /v1/practice/grade", student(s.handleGradePractice))

	// Mistakes
	s.router.HandleFunc("GET /v1/me/mistakes", student(s.handleListMistakes))
	s.router.HandleFunc("DELETE /v1/me/mistakes", student(s.handleClearMistakes))
	s.router.HandleFunc("POST /v1/me/mistakes/reviewed", student(s.handleMistakesReviewed))
	s.router.HandleFunc("GET /v1/me/weak-topics", student(s.handleWeakTopics))

	// Coach
	s.router.HandleFunc("POST /v1/me/plan", limited(s.handleGeneratePlan))
	s.router.HandleFunc("GET /v1/me/plan", student(s.handleGetPlan))
	s.router.HandleFunc("DELETE /v1/me/plan", student(s.handleClearPlan))
	s.router.HandleFunc("POST /v1/me/doubts", limited(s.handleSolveDoubt))
	s.router.HandleFunc("POST /v1/notes", limited(s.handleNotes))

	// Mentor (read-only)
	s.router.HandleFunc("GET /v1/mentor/summary", mentor(s.handleMentorSummary))
	s.router.HandleFunc("GET /v1/mentor/mistakes", mentor(s.handleMentorMistakes))
	s.router.HandleFunc("GET /v1/mentor/plan", mentor(s.handleMentorPlan))
}

// Handler returns the root handler with the full middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	var providers []string
	if s.llmRegistry != nil {
		providers = s.llmRegistry.List()
	}
	s.logger.Info("starting prepwise daemon",
		"addr", s.server.Addr,
		"llm_providers", providers,
		"storage", s.cfg.Storage.Backend,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then stops every exam runner
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")
	err := s.server.Shutdown(ctx)
	s.exams.Close()
	s.limiter.Stop()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	providers := []string{}
	defaultProvider := ""
	if s.llmRegistry != nil {
		providers = s.llmRegistry.List()
		defaultProvider = s.llmRegistry.DefaultName()
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":           "running",
		"version":          Version,
		"uptime_seconds":   int(time.Since(s.startedAt).Seconds()),
		"storage":          s.cfg.Storage.Backend,
		"llm_providers":    providers,
		"default_provider": defaultProvider,
		"coach":            s.coach != nil,
	})
}

// jsonResponse writes data as JSON
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// jsonError writes err with the status matching its sentinel. Server-side
// failures are logged and their details hidden from the client.
func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		s.logger.Error("request failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body into v
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps domain sentinels onto HTTP status codes
func statusFor(err error) int {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, auth.ErrInvalidRequest),
		errors.Is(err, exam.ErrInvalidConfig),
		errors.Is(err, practice.ErrInvalidRequest),
		errors.Is(err, practice.ErrIncomplete),
		errors.Is(err, coach.ErrInvalidInput),
		errors.Is(err, mistakes.ErrInvalid),
		errors.Is(err, gamification.ErrInvalidAmount),
		errors.Is(err, gamification.ErrUnknownEvent),
		errors.Is(err, domain.ErrUnknownExamMode),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidInvite),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotStudent):
		return http.StatusForbidden
	case errors.Is(err, exam.ErrAttemptNotFound),
		errors.Is(err, coach.ErrPlanNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, exam.ErrInvalidOperation),
		errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, coach.ErrNoWeakTopics):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrNoDefaultProvider),
		errors.Is(err, llm.ErrProviderNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, exam.ErrQuestionSource),
		errors.Is(err, coach.ErrMalformedPlan),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// user returns the identity the request acts for. Mentors act for the
// student they were invited by.
func user(r *http.Request) string {
	claims := GetClaims(r.Context())
	if claims == nil {
		return ""
	}
	if claims.Role == domain.RoleMentor {
		return claims.StudentEmail
	}
	return claims.Email
}
