package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/app"
	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/felixgeelhaar/prepwise/internal/daemon"
)

const (
	pidFileName     = "prepwised.pid"
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Ensure ~/.prepwise directory exists
	prepwiseDir, err := config.EnsurePrepwiseDir()
	if err != nil {
		return fmt.Errorf("ensure prepwise dir: %w", err)
	}

	// Load configuration: config.yaml, then the environment on top
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	cfg.ApplyEnv(env)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup logging
	logLevel := parseLogLevel(cfg.Daemon.LogLevel)
	logFile, err := setupLogging(prepwiseDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if cfg.Auth.Secret == "" {
		secret, err := ephemeralSecret()
		if err != nil {
			return err
		}
		cfg.Auth.Secret = secret
		slog.Warn("JWT_SECRET not set, using a random secret; tokens end with this process")
	}

	// Write PID file
	pidPath := filepath.Join(prepwiseDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	// Wire stores, models, queue and services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, app.AppConfig{
		Config:  cfg,
		DataDir: filepath.Join(prepwiseDir, "data"),
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	server, err := daemon.NewServer(daemon.ServerConfig{
		Config:   cfg,
		Auth:     application.Auth,
		Progress: application.Progress,
		Exams:    application.Exams,
		Practice: application.Practice,
		Journal:  application.Journal,
		Coach:    application.Coach,
		Registry: application.LLM,
		Logger:   slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if application.Queued() {
		slog.Info("events routed through rabbitmq")
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	// Start server
	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(prepwiseDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(prepwiseDir, "logs", "prepwised.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	// JSON to the log file, text to stderr for foreground mode
	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		},
	}))

	return logFile, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// ephemeralSecret signs tokens when no JWT_SECRET is configured
func ephemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
