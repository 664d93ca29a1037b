package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/felixgeelhaar/prepwise/internal/domain"
)

var providerNames = []string{"gemini", "claude", "openai", "ollama"}

// cmdInit initializes prepwise for first-time use
func cmdInit() error {
	fmt.Println("Prepwise - First-Time Setup")
	fmt.Println("===========================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating ~/.prepwise directory structure... ")
	prepwiseDir, err := config.EnsurePrepwiseDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(prepwiseDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		cfg := config.DefaultLocalConfig()
		cfg.Exam.BankDir = filepath.Join(prepwiseDir, "banks")
		if err := config.SaveLocalConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Println("Question Generator Setup")
	fmt.Println("------------------------")
	fmt.Println("Prepwise supports: Gemini (default), Claude, OpenAI and Ollama (local)")
	fmt.Println()

	cfg, _ := config.LoadLocalConfig()
	if cfg != nil && cfg.LLM.Providers["gemini"] != nil && cfg.LLM.Providers["gemini"].APIKey != "" {
		fmt.Println("Gemini API key: already configured ✓")
	} else {
		fmt.Print("Enter Gemini API key (or press Enter to skip): ")
		key, _ := reader.ReadString('\n')
		key = strings.TrimSpace(key)
		if key != "" {
			if err := saveProviderKey(cfg, "gemini", key); err != nil {
				fmt.Printf("  ⚠ Failed to save: %v\n", err)
			} else {
				fmt.Println("  ✓ Saved")
			}
		} else {
			fmt.Println("  Skipped. Without a key, exams use the question banks in ~/.prepwise/banks.")
		}
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. export JWT_SECRET=...            # Token signing secret")
	fmt.Println("  2. prepwise start                   # Start the daemon")
	fmt.Println("  3. prepwise login you@example.com   # First login creates the account")
	fmt.Println("  4. prepwise doctor                  # Verify configuration")
	fmt.Println()
	fmt.Println("For assistant integration, configure MCP with the 'prepwise mcp' command.")
	return nil
}

// cmdDoctor checks the local setup
func cmdDoctor() error {
	fmt.Println("Checking prepwise setup...")

	allGood := true

	fmt.Print("Directory: ")
	prepwiseDir, err := config.PrepwiseDir()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else if _, err := os.Stat(prepwiseDir); os.IsNotExist(err) {
		fmt.Println("✗ not created (run 'prepwise init')")
		allGood = false
	} else {
		fmt.Printf("✓ %s\n", prepwiseDir)
	}

	fmt.Print("Config:    ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Printf("✓ loaded (storage: %s)\n", cfg.Storage.Backend)

		fmt.Println("\nLLM Providers:")
		ready := 0
		for _, name := range providerNames {
			provider := cfg.LLM.Providers[name]
			if provider == nil || !provider.Enabled {
				continue
			}
			fmt.Printf("  %s: ", name)
			switch {
			case name == "ollama":
				if err := checkOllama(provider.URL); err != nil {
					fmt.Printf("✗ %v\n", err)
				} else {
					fmt.Printf("✓ available (model: %s)\n", provider.Model)
					ready++
				}
			case provider.APIKey != "":
				fmt.Printf("✓ configured (model: %s)\n", provider.Model)
				ready++
			default:
				fmt.Printf("✗ no API key (run 'prepwise provider set-key %s')\n", name)
			}
		}
		if ready == 0 {
			fmt.Println("  ⚠ none ready: exams fall back to question banks and the coach is off")
		}
	}

	fmt.Print("\nSecret:    ")
	if os.Getenv("JWT_SECRET") != "" {
		fmt.Println("✓ JWT_SECRET set")
	} else {
		fmt.Println("✗ JWT_SECRET not set (the daemon refuses to start unless DEBUG is set)")
		allGood = false
	}

	fmt.Print("Daemon:    ")
	if isRunning() {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'prepwise start')")
	}

	fmt.Print("Login:     ")
	if token, err := loadToken(); err != nil {
		fmt.Println("✗ not logged in")
	} else if claims, err := tokenClaims(token); err == nil {
		fmt.Printf("✓ %s (%s)\n", claims.Email, claims.Role)
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}
	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Prepwise Configuration")

	fmt.Println("Daemon:")
	fmt.Printf("  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)

	fmt.Println("\nLLM:")
	fmt.Printf("  default_provider: %s\n", cfg.LLM.DefaultProvider)
	fmt.Printf("  resilience: %t\n", cfg.LLM.Resilience)
	for _, name := range providerNames {
		provider := cfg.LLM.Providers[name]
		if provider == nil || !provider.Enabled {
			continue
		}
		keyStatus := "✗"
		if provider.APIKey != "" || name == "ollama" {
			keyStatus = "✓"
		}
		fmt.Printf("  %s: model=%s key=%s\n", name, provider.Model, keyStatus)
	}

	fmt.Println("\nExam:")
	fmt.Printf("  default_mode: %s\n", cfg.Exam.DefaultMode)
	fmt.Printf("  default_difficulty: %s\n", cfg.Exam.DefaultDifficulty)
	fmt.Printf("  cache_ttl: %dm\n", cfg.Exam.CacheTTLMinutes)
	if cfg.Exam.BankDir != "" {
		fmt.Printf("  bank_dir: %s\n", cfg.Exam.BankDir)
	}
	presets := cfg.ExamPresets()
	for _, mode := range []domain.ExamMode{domain.ExamJEE, domain.ExamBITSAT, domain.ExamVITEEE} {
		p := presets[mode]
		fmt.Printf("  %s: %d questions in %s\n", mode, p.TotalQuestions, p.Duration)
	}

	fmt.Println("\nStorage:")
	fmt.Printf("  backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.RabbitMQURL != "" {
		fmt.Println("  events: rabbitmq")
	}

	fmt.Println("\nAuth:")
	fmt.Printf("  token_expiry: %dh\n", cfg.Auth.TokenExpiryHours)
	fmt.Printf("  invite_ttl: %dm\n", cfg.Auth.InviteTTLMinutes)

	prepwiseDir, _ := config.PrepwiseDir()
	fmt.Printf("\nConfig path: %s/config.yaml\n", prepwiseDir)
	return nil
}

// cmdProvider manages LLM provider API keys
func cmdProvider(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Provider management commands:

  prepwise provider list              List configured providers
  prepwise provider set-key <name>    Set API key for a provider`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdProviderList()
	case "set-key":
		if len(args) < 2 {
			return fmt.Errorf("provider name required")
		}
		return cmdProviderSetKey(args[1])
	default:
		return fmt.Errorf("unknown provider command: %s", args[0])
	}
}

func cmdProviderList() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Configured LLM Providers:")
	for _, name := range providerNames {
		provider := cfg.LLM.Providers[name]
		if provider == nil {
			continue
		}
		status := "disabled"
		if provider.Enabled {
			if provider.APIKey != "" || name == "ollama" {
				status = "ready"
			} else {
				status = "needs API key"
			}
		}

		isDefault := ""
		if name == cfg.LLM.DefaultProvider {
			isDefault = " (default)"
		}

		fmt.Printf("  %s%s\n", name, isDefault)
		fmt.Printf("    status: %s\n", status)
		fmt.Printf("    model:  %s\n", provider.Model)
		if name == "ollama" && provider.URL != "" {
			fmt.Printf("    url:    %s\n", provider.URL)
		}
		fmt.Println()
	}
	return nil
}

func cmdProviderSetKey(provider string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !slices.Contains(providerNames, provider) {
		return fmt.Errorf("unknown provider: %s (valid: %s)", provider, strings.Join(providerNames, ", "))
	}
	if provider == "ollama" {
		fmt.Println("Ollama doesn't require an API key.")
		return nil
	}

	fmt.Printf("Enter %s API key: ", provider)
	key, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := saveProviderKey(cfg, provider, key); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Printf("✓ API key saved for %s\n", provider)
	fmt.Println("Restart the daemon for changes to take effect.")
	return nil
}

// saveProviderKey rewrites secrets.yaml keeping the keys already stored
func saveProviderKey(cfg *config.LocalConfig, provider, key string) error {
	secrets := map[string]string{provider: key}
	if cfg != nil {
		for name, p := range cfg.LLM.Providers {
			if name != provider && p.APIKey != "" {
				secrets[name] = p.APIKey
			}
		}
	}
	return config.SaveSecrets(secrets)
}

func checkOllama(url string) error {
	if url == "" {
		url = "http://localhost:11434"
	}

	resp, err := http.Get(url + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
