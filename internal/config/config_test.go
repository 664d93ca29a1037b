package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"PREPWISE_PORT", "DEBUG", "STORAGE_BACKEND", "DATABASE_URL", "REDIS_URL",
	"RABBITMQ_URL", "JWT_SECRET", "JWT_EXPIRY_HOURS", "ALLOWED_ORIGINS", "GEMINI_API_KEY",
}

// clearEnv blanks every variable Load reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"returns default when not set", "", 100, 100},
		{"parses valid int", "42", 100, 42},
		{"returns default on invalid int", "not-a-number", 100, 100},
		{"parses zero", "0", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvInt("TEST_INT", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"true", false, true},
		{"0", true, false},
		{"yes", true, true},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.envValue)
		if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
		}
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", " http://a.test, ,http://b.test ")
	got := getEnvList("TEST_LIST")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("getEnvList() = %q", got)
	}
}

func TestLoadFrom_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREPWISE_PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRY_HOURS", "12")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Port != 9000 || cfg.StorageBackend != BackendPostgres || cfg.JWTSecret != "s3cret" {
		t.Errorf("LoadFrom() = %+v", cfg)
	}
	if cfg.JWTExpiry != 12*time.Hour {
		t.Errorf("JWTExpiry = %v; want 12h", cfg.JWTExpiry)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, so unset the
	// ones the file provides.
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("REDIS_URL")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("REDIS_URL")
	})

	envFile := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(envFile, []byte("JWT_SECRET=from-file\nREDIS_URL=redis://localhost:6379/1\n"), 0600)

	cfg, err := LoadFrom(envFile)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.JWTSecret != "from-file" || cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("LoadFrom() = %+v; want values from .env", cfg)
	}
}

func TestLoadFrom_RequiresSecret(t *testing.T) {
	clearEnv(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("LoadFrom() error = %v; want ErrMissingSecret", err)
	}

	t.Setenv("DEBUG", "true")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadFrom() in debug mode error = %v", err)
	}
}

func TestLoadFrom_InvalidBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("STORAGE_BACKEND", "mongo")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("LoadFrom() error = nil; want invalid backend error")
	}
}
