package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/prepwise/internal/coach"
	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
	"github.com/felixgeelhaar/prepwise/internal/mistakes"
)

// ErrNoCoach means a coach tool was called without a language model
var ErrNoCoach = errors.New("no language model is configured")

// Server wraps the MCP server with prepwise functionality
type Server struct {
	mcpServer *server.Server
	progress  gamification.ProgressService
	badges    func(*gamification.State) []domain.Badge
	journal   *mistakes.Journal
	coach     *coach.Coach
	presets   map[domain.ExamMode]domain.ExamPreset
	user      string
}

// Config contains configuration for the MCP server. The server acts for a
// single learner, User. Coach is optional.
type Config struct {
	Progress *gamification.Engine
	Journal  *mistakes.Journal
	Coach    *coach.Coach
	Presets  map[domain.ExamMode]domain.ExamPreset
	User     string
	Version  string
}

// NewServer creates a new MCP server for prepwise
func NewServer(cfg Config) *Server {
	s := &Server{
		progress: cfg.Progress,
		badges:   cfg.Progress.BadgeDetails,
		journal:  cfg.Journal,
		coach:    cfg.Coach,
		presets:  cfg.Presets,
		user:     domain.NormalizeEmail(cfg.User),
	}
	if s.presets == nil {
		s.presets = domain.DefaultPresets()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "prepwise",
		Version: version,
	}, server.WithInstructions(`
Prepwise tracks entrance-exam preparation (JEE, BITSAT, VITEEE) for one learner.

Available tools:
- prepwise_progress: Level, XP, streak and badges
- prepwise_streak: Record today's study session and update the streak
- prepwise_event: Report a rewarded activity (test_generated, doubt_solved, ...)
- prepwise_mistakes: Recent wrongly answered questions
- prepwise_weak_topics: Topics with the most mistakes
- prepwise_leaderboard: Top learners by total XP
- prepwise_presets: Full-length exam layouts
- prepwise_doubt: Solve a doubt step by step
- prepwise_notes: Revision notes for a topic
- prepwise_plan: Build a 7-day plan from the weakest topics
`))

	s.registerTools()

	return s
}

// registerTools registers all prepwise MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("prepwise_progress").
		Description("Show the learner's level, XP, streak and badges").
		Handler(s.handleProgress)

	s.mcpServer.Tool("prepwise_streak").
		Description("Record today's study session. Consecutive days extend the streak.").
		Handler(s.handleStreak)

	s.mcpServer.Tool("prepwise_event").
		Description("Report a rewarded activity and award its XP and badges").
		Handler(s.handleEvent)

	s.mcpServer.Tool("prepwise_mistakes").
		Description("List recent mistakes, newest first").
		Handler(s.handleMistakes)

	s.mcpServer.Tool("prepwise_weak_topics").
		Description("Rank topics by mistake count").
		Handler(s.handleWeakTopics)

	s.mcpServer.Tool("prepwise_leaderboard").
		Description("Rank learners by total XP").
		Handler(s.handleLeaderboard)

	s.mcpServer.Tool("prepwise_presets").
		Description("List the full-length exam presets").
		Handler(s.handlePresets)

	s.mcpServer.Tool("prepwise_doubt").
		Description("Solve a doubt with a step-by-step explanation").
		Handler(s.handleDoubt)

	s.mcpServer.Tool("prepwise_notes").
		Description("Write concise revision notes for a topic").
		Handler(s.handleNotes)

	s.mcpServer.Tool("prepwise_plan").
		Description("Build a 7-day study plan targeting the weakest topics").
		Handler(s.handlePlan)
}

// Input/Output types for tools

type ProgressInput struct{}

type ProgressOutput struct {
	Level       int            `json:"level"`
	XP          int            `json:"xp"`
	NextLevelXP int            `json:"next_level_xp"`
	TotalXP     int            `json:"total_xp"`
	Streak      int            `json:"streak"`
	Badges      []domain.Badge `json:"badges"`
}

type StreakInput struct{}

type StreakOutput struct {
	Streak    int      `json:"streak"`
	Changed   bool     `json:"changed"`
	NewBadges []string `json:"new_badges,omitempty"`
	Message   string   `json:"message"`
}

type EventInput struct {
	Event string `json:"event" jsonschema:"description=Rewarded activity,enum=test_generated,enum=test_completed,enum=test_aced,enum=doubt_solved,enum=plan_generated,enum=exam_finished,enum=journal_reviewed"`
}

type EventOutput struct {
	Level        int      `json:"level"`
	XP           int      `json:"xp"`
	LevelsGained int      `json:"levels_gained"`
	NewBadges    []string `json:"new_badges,omitempty"`
	Warning      string   `json:"warning,omitempty"`
}

type MistakesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum number of mistakes (default: 10)"`
}

type MistakeItem struct {
	Topic         string `json:"topic"`
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
}

type MistakesOutput struct {
	Count    int           `json:"count"`
	Mistakes []MistakeItem `json:"mistakes"`
}

type TopNInput struct {
	N int `json:"n,omitempty" jsonschema:"description=Number of entries (default: 5)"`
}

type WeakTopicsOutput struct {
	Topics []mistakes.TopicCount `json:"topics"`
}

type LeaderboardOutput struct {
	Entries []gamification.LeaderboardEntry `json:"entries"`
}

type PresetsInput struct{}

type PresetItem struct {
	Mode            domain.ExamMode `json:"mode"`
	Subjects        []string        `json:"subjects"`
	TotalQuestions  int             `json:"total_questions"`
	DurationMinutes int             `json:"duration_minutes"`
}

type PresetsOutput struct {
	Presets []PresetItem `json:"presets"`
}

type DoubtInput struct {
	Question string `json:"question" jsonschema:"description=The doubt in plain words"`
}

type NotesInput struct {
	Topic string `json:"topic" jsonschema:"description=Topic to revise, e.g. Rotational Motion"`
}

type TextOutput struct {
	Content string `json:"content"`
	Warning string `json:"warning,omitempty"`
}

type PlanInput struct{}

type PlanOutput struct {
	WeekGoal string            `json:"week_goal"`
	Days     []coach.DailyPlan `json:"daily_plans"`
	Warning  string            `json:"warning,omitempty"`
}

// Tool handlers

func (s *Server) handleProgress(ctx context.Context, input ProgressInput) (ProgressOutput, error) {
	state, err := s.progress.Get(ctx, s.user)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("load progress: %w", err)
	}
	return ProgressOutput{
		Level:       state.Level,
		XP:          state.XP,
		NextLevelXP: gamification.LevelThreshold(state.Level),
		TotalXP:     state.Total(),
		Streak:      state.Streak,
		Badges:      s.badges(state),
	}, nil
}

func (s *Server) handleStreak(ctx context.Context, input StreakInput) (StreakOutput, error) {
	res, err := s.progress.CheckAndApplyStreak(ctx, s.user)
	if err != nil && !gamification.IsPersistenceWarning(err) {
		return StreakOutput{}, fmt.Errorf("apply streak: %w", err)
	}
	out := StreakOutput{
		Streak:    res.State.Streak,
		Changed:   res.Changed,
		NewBadges: res.NewBadges,
	}
	switch {
	case !res.Changed:
		out.Message = "Already counted today."
	case res.State.Streak == 1:
		out.Message = "Streak started."
	default:
		out.Message = fmt.Sprintf("%d days in a row.", res.State.Streak)
	}
	return out, nil
}

func (s *Server) handleEvent(ctx context.Context, input EventInput) (EventOutput, error) {
	res, err := s.progress.Reward(ctx, s.user, gamification.Event(strings.TrimSpace(input.Event)))
	out := EventOutput{}
	if err != nil {
		if !gamification.IsPersistenceWarning(err) {
			return out, err
		}
		out.Warning = err.Error()
	}
	out.Level = res.State.Level
	out.XP = res.State.XP
	out.LevelsGained = res.LevelsGained
	out.NewBadges = res.NewBadges
	return out, nil
}

func (s *Server) handleMistakes(ctx context.Context, input MistakesInput) (MistakesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	list, err := s.journal.List(ctx, s.user, limit)
	if err != nil {
		return MistakesOutput{}, fmt.Errorf("list mistakes: %w", err)
	}
	out := MistakesOutput{Count: len(list), Mistakes: make([]MistakeItem, 0, len(list))}
	for _, m := range list {
		out.Mistakes = append(out.Mistakes, MistakeItem{
			Topic:         m.Question.Topic,
			Question:      m.Question.Question,
			YourAnswer:    m.UserAnswer,
			CorrectAnswer: m.Question.Answer,
		})
	}
	return out, nil
}

func (s *Server) handleWeakTopics(ctx context.Context, input TopNInput) (WeakTopicsOutput, error) {
	topics, err := s.journal.WeakTopics(ctx, s.user, topN(input.N))
	if err != nil {
		return WeakTopicsOutput{}, fmt.Errorf("weak topics: %w", err)
	}
	return WeakTopicsOutput{Topics: topics}, nil
}

func (s *Server) handleLeaderboard(ctx context.Context, input TopNInput) (LeaderboardOutput, error) {
	entries, err := s.progress.Leaderboard(ctx, s.user, topN(input.N))
	if err != nil {
		return LeaderboardOutput{}, fmt.Errorf("leaderboard: %w", err)
	}
	return LeaderboardOutput{Entries: entries}, nil
}

func (s *Server) handlePresets(ctx context.Context, input PresetsInput) (PresetsOutput, error) {
	out := PresetsOutput{}
	for _, mode := range []domain.ExamMode{domain.ExamJEE, domain.ExamBITSAT, domain.ExamVITEEE} {
		p, ok := s.presets[mode]
		if !ok {
			continue
		}
		out.Presets = append(out.Presets, PresetItem{
			Mode:            p.Mode,
			Subjects:        p.SubjectNames(),
			TotalQuestions:  p.TotalQuestions,
			DurationMinutes: int(p.Duration.Minutes()),
		})
	}
	return out, nil
}

func (s *Server) handleDoubt(ctx context.Context, input DoubtInput) (TextOutput, error) {
	if s.coach == nil {
		return TextOutput{}, ErrNoCoach
	}
	sol, err := s.coach.SolveDoubt(ctx, s.user, input.Question)
	if err != nil {
		return TextOutput{}, fmt.Errorf("solve doubt: %w", err)
	}
	return TextOutput{Content: sol.Answer, Warning: strings.Join(sol.Warnings, "; ")}, nil
}

func (s *Server) handleNotes(ctx context.Context, input NotesInput) (TextOutput, error) {
	if s.coach == nil {
		return TextOutput{}, ErrNoCoach
	}
	notes, err := s.coach.Notes(ctx, input.Topic)
	if err != nil {
		return TextOutput{}, fmt.Errorf("write notes: %w", err)
	}
	return TextOutput{Content: notes}, nil
}

func (s *Server) handlePlan(ctx context.Context, input PlanInput) (PlanOutput, error) {
	if s.coach == nil {
		return PlanOutput{}, ErrNoCoach
	}
	res, err := s.coach.Plan(ctx, s.user)
	if err != nil {
		return PlanOutput{}, fmt.Errorf("build plan: %w", err)
	}
	return PlanOutput{
		WeekGoal: res.Plan.WeekGoal,
		Days:     res.Plan.DailyPlans,
		Warning:  strings.Join(res.Warnings, "; "),
	}, nil
}

func topN(n int) int {
	if n <= 0 {
		return 5
	}
	return min(n, 100)
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
