package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"gopkg.in/yaml.v3"
)

func TestPrepwiseDir(t *testing.T) {
	dir, err := PrepwiseDir()
	if err != nil {
		t.Fatalf("PrepwiseDir() error = %v", err)
	}
	if filepath.Base(dir) != ".prepwise" {
		t.Errorf("PrepwiseDir() = %q, want ending with .prepwise", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("PrepwiseDir() = %q, want absolute path", dir)
	}
}

func TestEnsurePrepwiseDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsurePrepwiseDir()
	if err != nil {
		t.Fatalf("EnsurePrepwiseDir() error = %v", err)
	}
	if want := filepath.Join(tmpHome, ".prepwise"); dir != want {
		t.Errorf("EnsurePrepwiseDir() = %q, want %q", dir, want)
	}
	for _, subdir := range []string{"logs", "data", "banks"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); os.IsNotExist(err) {
			t.Errorf("EnsurePrepwiseDir() should create %s", subdir)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon.Bind = %q; want loopback", cfg.Daemon.Bind)
	}
	if cfg.LLM.DefaultProvider != "gemini" || cfg.LLM.Providers["gemini"].Model != "gemini-2.5-flash" {
		t.Errorf("LLM = %+v; want gemini default", cfg.LLM)
	}
	if cfg.Storage.Backend != BackendJSON {
		t.Errorf("Storage.Backend = %q; want json", cfg.Storage.Backend)
	}
	if cfg.Auth.TokenExpiryHours != 72 {
		t.Errorf("Auth.TokenExpiryHours = %d; want 72", cfg.Auth.TokenExpiryHours)
	}
}

func TestLoadLocalConfigFrom_Missing(t *testing.T) {
	cfg, err := LoadLocalConfigFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Port != DefaultLocalConfig().Daemon.Port {
		t.Errorf("Daemon.Port = %d; want default", cfg.Daemon.Port)
	}
}

func TestLoadLocalConfigFrom_Overlay(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
daemon:
  port: 9100
exam:
  default_difficulty: Hard
  presets:
    JEE:
      total_questions: 30
      duration_minutes: 60
rewards:
  test_generated:
    xp: 8
storage:
  backend: sqlite
`)
	os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Port != 9100 || cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon = %+v; want port overridden and bind kept", cfg.Daemon)
	}
	if cfg.Exam.DefaultDifficulty != "Hard" || cfg.Exam.Presets["JEE"].TotalQuestions != 30 {
		t.Errorf("Exam = %+v", cfg.Exam)
	}
	if cfg.Rewards["test_generated"].XP != 8 {
		t.Errorf("Rewards = %+v", cfg.Rewards)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Storage.Backend = %q; want sqlite", cfg.Storage.Backend)
	}
}

func TestLoadLocalConfigFrom_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "daemon: [unclosed",
		"bad backend":    "storage:\n  backend: mongo\n",
		"bad difficulty": "exam:\n  default_difficulty: Insane\n",
		"negative xp":    "rewards:\n  test_generated:\n    xp: -5\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644)
			if _, err := LoadLocalConfigFrom(dir); err == nil {
				t.Error("LoadLocalConfigFrom() error = nil; want error")
			}
		})
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if err := SaveSecretsTo(dir, map[string]string{"gemini": "g-key", "unknown": "x"}); err != nil {
		t.Fatalf("SaveSecretsTo() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		t.Fatalf("stat secrets: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets.yaml mode = %o; want 600", perm)
	}

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.LLM.Providers["gemini"].APIKey != "g-key" {
		t.Errorf("gemini APIKey = %q; want g-key", cfg.LLM.Providers["gemini"].APIKey)
	}
}

func TestSaveLocalConfigTo_OmitsSecrets(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLocalConfig()
	cfg.LLM.Providers["gemini"].APIKey = "do-not-write"
	cfg.Auth.Secret = "do-not-write"

	if err := SaveLocalConfigTo(dir, cfg); err != nil {
		t.Fatalf("SaveLocalConfigTo() error = %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "config.yaml"))

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("written config is not YAML: %v", err)
	}
	if strings.Contains(string(data), "do-not-write") {
		t.Error("config.yaml contains a secret")
	}

	loaded, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if loaded.Daemon.Port != cfg.Daemon.Port {
		t.Errorf("reloaded port = %d; want %d", loaded.Daemon.Port, cfg.Daemon.Port)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.ApplyEnv(&Config{
		Port:           8088,
		Debug:          true,
		StorageBackend: BackendRedis,
		RedisURL:       "redis://r:6379/0",
		DatabaseURL:    "postgres://p/db",
		RabbitMQURL:    "amqp://q",
		JWTSecret:      "sec",
		GeminiAPIKey:   "gk",
		AllowedOrigins: []string{"http://x.test"},
	})

	if cfg.Daemon.Port != 8088 || cfg.Daemon.LogLevel != "debug" {
		t.Errorf("Daemon = %+v", cfg.Daemon)
	}
	if cfg.Storage.Backend != BackendRedis || cfg.Storage.RedisURL != "redis://r:6379/0" ||
		cfg.Storage.PostgresURL != "postgres://p/db" || cfg.Storage.RabbitMQURL != "amqp://q" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Auth.Secret != "sec" || cfg.LLM.Providers["gemini"].APIKey != "gk" {
		t.Error("ApplyEnv() did not carry secrets")
	}

	empty := DefaultLocalConfig()
	empty.ApplyEnv(&Config{})
	if empty.Daemon.Port != DefaultLocalConfig().Daemon.Port || empty.Storage.Backend != BackendJSON {
		t.Error("ApplyEnv() with empty env changed the config")
	}
}

func TestExamPresets_Overrides(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.Exam.Presets = map[string]PresetOverride{
		"jee":    {TotalQuestions: 30},
		"VITEEE": {DurationMinutes: 60},
		"SAT":    {TotalQuestions: 5},
	}

	presets := cfg.ExamPresets()
	if len(presets) != 3 {
		t.Fatalf("ExamPresets() has %d entries; want 3", len(presets))
	}
	jee := presets[domain.ExamJEE]
	if jee.TotalQuestions != 30 || jee.Duration != 3*time.Hour {
		t.Errorf("JEE = %d questions, %v; want 30, 3h", jee.TotalQuestions, jee.Duration)
	}
	vit := presets[domain.ExamVITEEE]
	if vit.TotalQuestions != 125 || vit.Duration != time.Hour {
		t.Errorf("VITEEE = %d questions, %v; want 125, 1h", vit.TotalQuestions, vit.Duration)
	}
}
