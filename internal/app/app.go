// Package app wires the prepwise services from the local configuration.
// Both the daemon and the MCP server build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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
	"github.com/felixgeelhaar/prepwise/internal/questions"
	"github.com/felixgeelhaar/prepwise/internal/queue"
	"github.com/felixgeelhaar/prepwise/internal/storage/local"
	"github.com/felixgeelhaar/prepwise/internal/storage/postgres"
	redisstore "github.com/felixgeelhaar/prepwise/internal/storage/redis"
	"github.com/felixgeelhaar/prepwise/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnknownBackend means the configured storage backend is not supported
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrMissingURL means the backend needs a connection URL
	ErrMissingURL = errors.New("storage backend needs a connection url")
)

// App holds all application dependencies
type App struct {
	Config    *config.LocalConfig
	Store     *local.Store
	LLM       *llm.Registry
	Questions exam.QuestionProvider
	Progress  *gamification.Engine
	Journal   *mistakes.Journal
	Auth      *auth.Service
	Exams     *exam.Service
	Practice  *practice.Service
	Coach     *coach.Coach

	logger   *slog.Logger
	producer *queue.Producer
	consumer *queue.Consumer
	closers  []func() error
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config *config.LocalConfig
	// DataDir holds the JSON store and the default SQLite file
	DataDir string
	// WithoutAuth skips the account service. The MCP server acts for a
	// single local user and never issues tokens.
	WithoutAuth bool
	// WithoutQueue ignores a configured RabbitMQ URL
	WithoutQueue bool
	Logger       *slog.Logger
}

// stores is the persistence chosen by the storage backend
type stores struct {
	progress gamification.Store
	mistakes mistakes.Store
	users    auth.UserStore
	invites  auth.InviteStore
	rdb      *redis.Client
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg.Config, logger: logger}

	if err := a.init(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg AppConfig) error {
	lc := cfg.Config

	store, err := local.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}
	a.Store = store

	st, err := a.openStores(ctx, lc.Storage, cfg.DataDir)
	if err != nil {
		return err
	}

	a.LLM = llm.NewRegistry()
	initLLMProviders(a.LLM, lc.LLM, a.logger)
	a.closers = append(a.closers, a.LLM.Close)

	var conn *queue.Connection
	if lc.Storage.RabbitMQURL != "" && !cfg.WithoutQueue {
		conn, err = queue.NewConnection(lc.Storage.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect queue: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		a.producer = queue.NewProducer(conn)
	}

	progressOpts := []gamification.Option{
		gamification.WithRewards(rewardTable(lc.Rewards)),
		gamification.WithLogger(a.logger),
	}
	if a.producer != nil {
		progressOpts = append(progressOpts, gamification.WithPublisher(a.producer))
	}
	a.Progress = gamification.NewEngine(st.progress, progressOpts...)
	a.Journal = mistakes.NewJournal(st.mistakes,
		mistakes.WithRewarder(a.Progress), mistakes.WithLogger(a.logger))

	if conn != nil {
		a.consumer = queue.NewConsumer(conn, queue.Handlers{
			Mistake:      a.Journal.HandleRecorded,
			XPAwarded:    a.logXPAwarded,
			ExamFinished: a.logExamFinished,
		}, queue.DefaultConsumerConfig())
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("start queue consumer: %w", err)
		}
		a.closers = append(a.closers, func() error { a.consumer.Stop(); return nil })
	}

	if !cfg.WithoutAuth {
		if lc.Auth.Secret == "" {
			return auth.ErrNoSecret
		}
		a.Auth, err = auth.NewService(st.users, st.invites, auth.Config{
			Secret:      []byte(lc.Auth.Secret),
			TokenExpiry: time.Duration(lc.Auth.TokenExpiryHours) * time.Hour,
			InviteTTL:   time.Duration(lc.Auth.InviteTTLMinutes) * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
		a.Auth.SetLogger(a.logger)
	}

	a.Questions = a.questionChain(lc.Exam, st.rdb)

	var publisher exam.Publisher
	if a.producer != nil {
		publisher = a.producer
	}
	a.Exams = exam.NewService(exam.ServiceConfig{
		Provider:  a.Questions,
		Mistakes:  a.MistakeSink,
		Awards:    func(u string) exam.XPAwarder { return a.Progress.Awarder(u) },
		Publisher: publisher,
		Logger:    a.logger,
	})
	a.closers = append(a.closers, func() error { a.Exams.Close(); return nil })

	a.Practice = practice.NewService(practice.Config{
		Provider: a.Questions,
		Rewards:  a.Progress,
		Mistakes: a.MistakeSink,
		Logger:   a.logger,
	})

	if len(a.LLM.List()) > 0 {
		a.Coach = coach.New(coach.Config{
			Registry: a.LLM,
			Topics:   a.Journal,
			Plans:    coach.NewJSONPlanStore(store),
			Rewards:  a.Progress,
			Logger:   a.logger,
		})
	}
	return nil
}

// openStores connects the configured backend. Plans always live in the
// JSON store.
func (a *App) openStores(ctx context.Context, sc config.StorageConfig, dataDir string) (*stores, error) {
	st := &stores{}
	jsonUsers := auth.NewJSONStore(a.Store)

	switch sc.Backend {
	case "", config.BackendJSON:
		st.progress = gamification.NewJSONStoreFrom(a.Store)
		st.mistakes = mistakes.NewJSONStoreFrom(a.Store)
		st.users, st.invites = jsonUsers, jsonUsers

	case config.BackendSQLite:
		path := sc.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, "prepwise.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		users := sqlite.NewUserStore(db)
		st.progress = sqlite.NewProgressStore(db)
		st.mistakes = sqlite.NewMistakeStore(db)
		st.users, st.invites = users, users

	case config.BackendPostgres:
		if sc.PostgresURL == "" {
			return nil, fmt.Errorf("%w: set DATABASE_URL for postgres", ErrMissingURL)
		}
		if err := postgres.Migrate(sc.PostgresURL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := postgres.Open(ctx, postgres.Config{URL: sc.PostgresURL}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		repo := auth.NewPostgresRepository(pool)
		st.progress = postgres.NewProgressStore(pool)
		st.mistakes = postgres.NewMistakeStore(pool)
		st.users, st.invites = repo, repo

	case config.BackendRedis:
		if sc.RedisURL == "" {
			return nil, fmt.Errorf("%w: set REDIS_URL for redis", ErrMissingURL)
		}
		st.mistakes = mistakes.NewJSONStoreFrom(a.Store)
		st.users = jsonUsers

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, sc.Backend)
	}

	if sc.RedisURL != "" {
		rdb, err := redisstore.NewClient(ctx, sc.RedisURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		st.rdb = rdb
		if sc.Backend == config.BackendRedis {
			st.progress = redisstore.NewProgressStore(rdb)
			st.invites = auth.NewRedisInviteStore(rdb)
		}
	}
	return st, nil
}

// questionChain serves generated questions first and falls back to the
// local banks. With Redis available, generated sets are cached.
func (a *App) questionChain(ec config.ExamConfig, rdb *redis.Client) exam.QuestionProvider {
	var generated exam.QuestionProvider
	if len(a.LLM.List()) > 0 {
		generated = questions.NewLLMProvider(a.LLM, a.logger)
		if rdb != nil && ec.CacheTTLMinutes > 0 {
			generated = questions.NewCachedProvider(generated, questions.NewRedisCache(rdb),
				questions.WithTTL(time.Duration(ec.CacheTTLMinutes)*time.Minute),
				questions.WithCacheLogger(a.logger))
		}
	}

	var bank exam.QuestionProvider
	if ec.BankDir != "" {
		b := questions.NewBankProvider(questions.WithBankLogger(a.logger))
		if err := b.LoadDir(ec.BankDir); err != nil {
			a.logger.Warn("question bank not loaded", "dir", ec.BankDir, "error", err)
		} else if b.Len() > 0 {
			bank = b
		}
	}

	return questions.NewFallbackProvider(a.logger, generated, bank)
}

// MistakeSink returns where user's wrong answers go: the event queue when
// one is configured, the journal otherwise.
func (a *App) MistakeSink(user string) exam.MistakeSink {
	if a.producer != nil {
		return mistakes.NewQueueSink(a.producer, a.Journal, user)
	}
	return a.Journal.Sink(user)
}

// Presets returns the exam presets with config overrides applied
func (a *App) Presets() map[domain.ExamMode]domain.ExamPreset {
	return a.Config.ExamPresets()
}

// Queued reports whether events go through RabbitMQ
func (a *App) Queued() bool {
	return a.producer != nil
}

func (a *App) logXPAwarded(ctx context.Context, ev *queue.XPAwarded) error {
	a.logger.Info("xp awarded", "user", ev.User, "amount", ev.Amount, "level", ev.Level, "badges", ev.Badges)
	return nil
}

func (a *App) logExamFinished(ctx context.Context, ev *queue.ExamFinished) error {
	a.logger.Info("exam finished", "user", ev.User, "attempt", ev.AttemptID, "score", ev.Score, "total", ev.Total)
	return nil
}

// initLLMProviders registers every enabled provider that has what it needs
// to run. Ollama needs no API key.
func initLLMProviders(registry *llm.Registry, cfg config.LLMConfig, logger *slog.Logger) {
	for name, pc := range cfg.Providers {
		if pc == nil || !pc.Enabled {
			continue
		}
		if pc.APIKey == "" && name != "ollama" {
			logger.Debug("llm provider skipped, no api key", "provider", name)
			continue
		}

		switch name {
		case "gemini":
			registry.Register(name, llm.NewGeminiProvider(llm.GeminiConfig{
				APIKey: pc.APIKey,
				Model:  pc.Model,
			}))
		case "claude":
			registry.Register(name, llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey: pc.APIKey,
				Model:  pc.Model,
			}))
		case "openai":
			registry.Register(name, llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey: pc.APIKey,
				Model:  pc.Model,
			}))
		case "ollama":
			registry.Register(name, llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: pc.URL,
				Model:   pc.Model,
			}))
		default:
			logger.Warn("unknown llm provider", "provider", name)
		}
	}

	if cfg.Resilience {
		rc := llm.DefaultResilientConfig()
		rc.Logger = logger
		llm.WrapAll(registry, rc)
	}

	if cfg.DefaultProvider != "" {
		if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
			logger.Warn("default llm provider unavailable", "provider", cfg.DefaultProvider, "error", err)
		}
	}
}

// rewardTable merges the configured overrides into the built-in table
func rewardTable(overrides map[string]config.RewardConfig) gamification.Rewards {
	if len(overrides) == 0 {
		return gamification.DefaultRewards()
	}
	custom := make(gamification.Rewards, len(overrides))
	for event, rc := range overrides {
		custom[gamification.Event(event)] = gamification.Reward{XP: rc.XP, Badges: rc.Badges}
	}
	return gamification.DefaultRewards().Merge(custom)
}

// Close releases every resource in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// DataDir returns the default data directory under ~/.prepwise
func DataDir() (string, error) {
	dir, err := config.EnsurePrepwiseDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "data")
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return path, nil
}
