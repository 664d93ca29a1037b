package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/prepwise/internal/app"
	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/felixgeelhaar/prepwise/internal/domain"
	mcpserver "github.com/felixgeelhaar/prepwise/internal/mcp"
)

// cmdMCP serves the learner's progress, journal and coach over MCP. It
// opens the stores directly and reads them on every call, so it runs with or
// without the daemon.
func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	user := fs.String("user", "", "learner email (defaults to the logged-in account)")
	httpAddr := fs.String("http", "", "serve streamable HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email, err := mcpUser(*user)
	if err != nil {
		return err
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// No tokens are signed here; without JWT_SECRET the env overlay is skipped
	env, err := config.Load()
	switch {
	case errors.Is(err, config.ErrMissingSecret):
	case err != nil:
		return fmt.Errorf("load environment: %w", err)
	default:
		cfg.ApplyEnv(env)
	}

	dataDir, err := app.DataDir()
	if err != nil {
		return err
	}

	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewApp(ctx, app.AppConfig{
		Config:       cfg,
		DataDir:      dataDir,
		WithoutAuth:  true,
		WithoutQueue: true,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Progress: application.Progress,
		Journal:  application.Journal,
		Coach:    application.Coach,
		Presets:  application.Presets(),
		User:     email,
		Version:  Version,
	})

	if *httpAddr != "" {
		fmt.Fprintf(os.Stderr, "MCP server for %s on %s\n", email, *httpAddr)
		return srv.ServeHTTP(ctx, *httpAddr)
	}
	return srv.ServeStdio(ctx)
}

// mcpUser picks the learner the MCP tools act for. The tools write progress,
// so mentor tokens are refused.
func mcpUser(flagUser string) (string, error) {
	if flagUser != "" {
		return domain.NormalizeEmail(flagUser), nil
	}
	token, err := loadToken()
	if err != nil {
		return "", fmt.Errorf("%w, or pass --user <email>", err)
	}
	claims, err := tokenClaims(token)
	if err != nil {
		return "", err
	}
	if claims.Role == domain.RoleMentor {
		return "", fmt.Errorf("mentor logins are read-only; use 'prepwise progress' instead")
	}
	return claims.Email, nil
}
