package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/visit"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	Token     string `yaml:"token,omitempty"`
	Role      string `yaml:"role,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nb", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// loadDotEnv loads NB_* variables from a .env file in the working
// directory. Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := os.Getenv("NB_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// getToken returns the bearer token from env var or config.
func getToken() string {
	if v := os.Getenv("NB_TOKEN"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.Token
	}
	return ""
}

// getRole resolves the acting role: --role flag, NB_ROLE, config, then tenant.
func getRole() (visit.Role, error) {
	raw := flagRole
	if raw == "" {
		raw = os.Getenv("NB_ROLE")
	}
	if raw == "" {
		if cfg, err := loadConfig(); err == nil {
			raw = cfg.Role
		}
	}
	if raw == "" {
		return visit.Tenant, nil
	}
	return visit.ParseRole(raw)
}

// getTimeout returns the HTTP timeout from config, or the client default.
func getTimeout() time.Duration {
	cfg, err := loadConfig()
	if err != nil || cfg.Timeout == "" {
		return client.DefaultTimeout
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid timeout in config", "timeout", cfg.Timeout)
		return client.DefaultTimeout
	}
	return d
}

// devMode reports whether NB_DEV_MODE is set to a true value.
func devMode() bool {
	v, err := strconv.ParseBool(os.Getenv("NB_DEV_MODE"))
	return err == nil && v
}
