package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/validation"
	"gopkg.in/yaml.v3"
)

// LocalConfig holds configuration for local daemon mode
type LocalConfig struct {
	Daemon  DaemonConfig            `yaml:"daemon"`
	LLM     LLMConfig               `yaml:"llm"`
	Exam    ExamConfig              `yaml:"exam"`
	Rewards map[string]RewardConfig `yaml:"rewards,omitempty" validate:"dive"`
	Storage StorageConfig           `yaml:"storage"`
	Auth    AuthConfig              `yaml:"auth"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lte=65535"`
	Bind           string   `yaml:"bind" validate:"required"`
	LogLevel       string   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
	Resilience      bool                       `yaml:"resilience"`
}

// ProviderConfig holds settings for a single LLM provider
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	URL     string `yaml:"url,omitempty"` // For Ollama
	APIKey  string `yaml:"-"`             // Loaded from secrets.yaml
}

// ExamConfig holds exam and question-source settings
type ExamConfig struct {
	DefaultDifficulty string                    `yaml:"default_difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	DefaultMode       string                    `yaml:"default_mode" validate:"omitempty,oneof=JEE BITSAT VITEEE"`
	Presets           map[string]PresetOverride `yaml:"presets,omitempty" validate:"dive"`
	BankDir           string                    `yaml:"bank_dir,omitempty"`
	CacheTTLMinutes   int                       `yaml:"cache_ttl_minutes" validate:"gte=0"`
}

// PresetOverride replaces the length of a built-in preset. Zero fields keep
// the built-in value.
type PresetOverride struct {
	TotalQuestions  int `yaml:"total_questions" validate:"gte=0,lte=200"`
	DurationMinutes int `yaml:"duration_minutes" validate:"gte=0"`
}

// RewardConfig overrides one reward-table entry
type RewardConfig struct {
	XP     int      `yaml:"xp" validate:"gte=0"`
	Badges []string `yaml:"badges,omitempty"`
}

// StorageConfig selects where progress, mistakes and accounts live
type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=json sqlite postgres redis"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	PostgresURL string `yaml:"postgres_url,omitempty"`
	RedisURL    string `yaml:"redis_url,omitempty"`
	RabbitMQURL string `yaml:"rabbitmq_url,omitempty"`
}

// AuthConfig holds token settings. The signing secret comes from the
// environment, never from config.yaml.
type AuthConfig struct {
	TokenExpiryHours int    `yaml:"token_expiry_hours" validate:"gte=0"`
	InviteTTLMinutes int    `yaml:"invite_ttl_minutes" validate:"gte=0"`
	Secret           string `yaml:"-"`
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"providers"`
}

// PrepwiseDir returns the path to ~/.prepwise
func PrepwiseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".prepwise"), nil
}

// EnsurePrepwiseDir creates ~/.prepwise and subdirectories if they don't exist
func EnsurePrepwiseDir() (string, error) {
	dir, err := PrepwiseDir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"data",
		"banks",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7433,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Resilience:      true,
			Providers: map[string]*ProviderConfig{
				"gemini": {
					Enabled: true,
					Model:   "gemini-2.5-flash",
				},
				"claude": {
					Enabled: false,
					Model:   "claude-sonnet-4-20250514",
				},
				"openai": {
					Enabled: false,
					Model:   "gpt-4o",
				},
				"ollama": {
					Enabled: false,
					URL:     "http://localhost:11434",
					Model:   "llama3",
				},
			},
		},
		Exam: ExamConfig{
			DefaultDifficulty: "Medium",
			DefaultMode:       "JEE",
			CacheTTLMinutes:   360,
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Auth: AuthConfig{
			TokenExpiryHours: 72,
			InviteTTLMinutes: 24 * 60,
		},
	}
}

// Validate checks the config against its struct tags
func (c *LocalConfig) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %s", validation.Message(err))
	}
	return nil
}

// ExamPresets returns the built-in presets with the configured overrides
// applied. Overrides for unknown modes are ignored.
func (c *LocalConfig) ExamPresets() map[domain.ExamMode]domain.ExamPreset {
	presets := domain.DefaultPresets()
	for name, o := range c.Exam.Presets {
		mode, err := domain.ParseExamMode(name)
		if err != nil {
			continue
		}
		p := presets[mode]
		if o.TotalQuestions > 0 {
			p.TotalQuestions = o.TotalQuestions
		}
		if o.DurationMinutes > 0 {
			p.Duration = time.Duration(o.DurationMinutes) * time.Minute
		}
		presets[mode] = p
	}
	return presets
}

// ApplyEnv overlays settings from the environment. Non-empty env values win.
func (c *LocalConfig) ApplyEnv(env *Config) {
	if env == nil {
		return
	}
	if env.Port > 0 {
		c.Daemon.Port = env.Port
	}
	if env.Debug {
		c.Daemon.LogLevel = "debug"
	}
	if len(env.AllowedOrigins) > 0 {
		c.Daemon.AllowedOrigins = env.AllowedOrigins
	}
	if env.StorageBackend != "" {
		c.Storage.Backend = env.StorageBackend
	}
	if env.DatabaseURL != "" {
		c.Storage.PostgresURL = env.DatabaseURL
	}
	if env.RedisURL != "" {
		c.Storage.RedisURL = env.RedisURL
	}
	if env.RabbitMQURL != "" {
		c.Storage.RabbitMQURL = env.RabbitMQURL
	}
	if env.JWTSecret != "" {
		c.Auth.Secret = env.JWTSecret
	}
	if env.JWTExpiry > 0 {
		c.Auth.TokenExpiryHours = int(env.JWTExpiry.Hours())
	}
	if env.GeminiAPIKey != "" {
		p, ok := c.LLM.Providers["gemini"]
		if !ok {
			p = &ProviderConfig{Enabled: true}
			if c.LLM.Providers == nil {
				c.LLM.Providers = make(map[string]*ProviderConfig)
			}
			c.LLM.Providers["gemini"] = p
		}
		p.APIKey = env.GeminiAPIKey
	}
}

// LoadLocalConfig loads configuration from ~/.prepwise/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := PrepwiseDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir. A missing
// config.yaml yields the defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}
	return nil
}

// SaveLocalConfig saves configuration to ~/.prepwise/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsurePrepwiseDir()
	if err != nil {
		return err
	}
	return SaveLocalConfigTo(dir, cfg)
}

// SaveLocalConfigTo writes config.yaml into dir
func SaveLocalConfigTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveSecrets saves API keys to ~/.prepwise/secrets.yaml
func SaveSecrets(secrets map[string]string) error {
	dir, err := EnsurePrepwiseDir()
	if err != nil {
		return err
	}
	return SaveSecretsTo(dir, secrets)
}

// SaveSecretsTo writes secrets.yaml into dir, readable by the owner only
func SaveSecretsTo(dir string, secrets map[string]string) error {
	secretsCfg := SecretsConfig{
		Providers: make(map[string]struct {
			APIKey string `yaml:"api_key"`
		}),
	}
	for name, key := range secrets {
		secretsCfg.Providers[name] = struct {
			APIKey string `yaml:"api_key"`
		}{APIKey: key}
	}

	data, err := yaml.Marshal(secretsCfg)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	path := filepath.Join(dir, "secrets.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0600)
}
