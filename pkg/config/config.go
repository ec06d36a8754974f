package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
)

const (
	defaultBaseURL = "https://chat.qwen.ai"
	defaultModel   = "qwen3-max-2025-10-30"

	// DefaultThinkingBudget caps internal reasoning when thinking mode is on.
	DefaultThinkingBudget = 81920

	// DefaultCredentialMaxAge forces reauthentication after this credential age.
	DefaultCredentialMaxAge = 24 * time.Hour
)

// Config represents the complete qwenweb configuration
type Config struct {
	BaseURL     string            `yaml:"base_url"`
	Model       string            `yaml:"model"`
	ChatMode    string            `yaml:"chat_mode"`
	ChatType    string            `yaml:"chat_type"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Thinking    ThinkingConfig    `yaml:"thinking"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Logging     LoggingConfig     `yaml:"logging"`
	Storage     StorageConfig     `yaml:"storage"`
}

// CredentialsConfig locates the persisted credential files and sets the
// reauthentication policy.
type CredentialsConfig struct {
	Dir    string        `yaml:"dir"`
	MaxAge time.Duration `yaml:"max_age"`
}

// ThinkingConfig holds the default reasoning settings for new clients
type ThinkingConfig struct {
	Enabled bool `yaml:"enabled"`
	Budget  int  `yaml:"budget"`
}

// TimeoutConfig bounds request and stream-read latency
type TimeoutConfig struct {
	Request    time.Duration `yaml:"request"`
	StreamIdle time.Duration `yaml:"stream_idle"`
}

// RateLimitConfig throttles outgoing requests
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig controls the structured jsonl logs
type LoggingConfig struct {
	Dir         string `yaml:"dir"`
	MinLevel    string `yaml:"min_level"`
	NetworkLogs bool   `yaml:"network_logs"`
}

// StorageConfig controls the optional turn-history database
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	baseDir := filepath.Join(home, ".qwenweb")

	return &Config{
		BaseURL:  defaultBaseURL,
		Model:    defaultModel,
		ChatMode: "normal",
		ChatType: "t2t",
		Credentials: CredentialsConfig{
			Dir:    filepath.Join(baseDir, "credentials"),
			MaxAge: DefaultCredentialMaxAge,
		},
		Thinking: ThinkingConfig{
			Enabled: false,
			Budget:  DefaultThinkingBudget,
		},
		Timeouts: TimeoutConfig{
			Request:    2 * time.Minute,
			StreamIdle: 90 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
		Logging: LoggingConfig{
			Dir:      filepath.Join(baseDir, "logs"),
			MinLevel: "info",
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    filepath.Join(baseDir, "history.db"),
		},
	}
}

// Load reads ~/.qwenweb/config.yaml when present, applies environment
// overrides, and validates the result.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".qwenweb", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, qwerrors.Wrap(err, qwerrors.ErrCodeConfigLoad, "loading user config")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from an explicit file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeConfigLoad, "loading config").WithContext("path", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QWENWEB_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("QWENWEB_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("QWENWEB_CREDENTIALS_DIR"); v != "" {
		cfg.Credentials.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("QWENWEB_CREDENTIAL_MAX_AGE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Credentials.MaxAge = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("QWENWEB_THINKING_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Thinking.Enabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("QWENWEB_THINKING_BUDGET")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Thinking.Budget = n
		}
	}
	if v := os.Getenv("QWENWEB_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("QWENWEB_NETWORK_LOGS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.NetworkLogs = b
		}
	}
	if v := os.Getenv("QWENWEB_HISTORY_PATH"); v != "" {
		cfg.Storage.Enabled = true
		cfg.Storage.Path = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "base_url cannot be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "base_url must be an http(s) URL").
			WithContext("base_url", c.BaseURL)
	}
	if strings.TrimSpace(c.Model) == "" {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "model cannot be empty")
	}
	if c.Credentials.MaxAge <= 0 {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "credentials.max_age must be positive")
	}
	if c.Thinking.Budget <= 0 {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "thinking.budget must be positive")
	}
	if c.Timeouts.StreamIdle <= 0 {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "timeouts.stream_idle must be positive")
	}
	if c.RateLimit.RPS <= 0 {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "rate_limit.rps must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return qwerrors.New(qwerrors.ErrCodeConfigInvalid, "rate_limit.burst must be positive")
	}
	return nil
}

// String renders the effective configuration for diagnostics (no secrets live here)
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
