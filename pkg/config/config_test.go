package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://chat.qwen.ai", cfg.BaseURL)
	assert.Equal(t, "qwen3-max-2025-10-30", cfg.Model)
	assert.Equal(t, "normal", cfg.ChatMode)
	assert.Equal(t, "t2t", cfg.ChatType)
	assert.Equal(t, DefaultCredentialMaxAge, cfg.Credentials.MaxAge)
	assert.Equal(t, DefaultThinkingBudget, cfg.Thinking.Budget)
	assert.False(t, cfg.Thinking.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
base_url: https://chat.example.com
model: qwen3-test
thinking:
  enabled: true
  budget: 4096
credentials:
  max_age: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.BaseURL)
	assert.Equal(t, "qwen3-test", cfg.Model)
	assert.True(t, cfg.Thinking.Enabled)
	assert.Equal(t, 4096, cfg.Thinking.Budget)
	assert.Equal(t, time.Hour, cfg.Credentials.MaxAge)
	// Unset fields keep defaults.
	assert.Equal(t, "normal", cfg.ChatMode)
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QWENWEB_BASE_URL", "https://override.example.com")
	t.Setenv("QWENWEB_THINKING_ENABLED", "true")
	t.Setenv("QWENWEB_THINKING_BUDGET", "1234")
	t.Setenv("QWENWEB_CREDENTIAL_MAX_AGE", "30m")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "https://override.example.com", cfg.BaseURL)
	assert.True(t, cfg.Thinking.Enabled)
	assert.Equal(t, 1234, cfg.Thinking.Budget)
	assert.Equal(t, 30*time.Minute, cfg.Credentials.MaxAge)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, true},
		{"non-http base url", func(c *Config) { c.BaseURL = "ftp://x" }, true},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"zero max age", func(c *Config) { c.Credentials.MaxAge = 0 }, true},
		{"zero thinking budget", func(c *Config) { c.Thinking.Budget = 0 }, true},
		{"zero stream idle", func(c *Config) { c.Timeouts.StreamIdle = 0 }, true},
		{"zero rps", func(c *Config) { c.RateLimit.RPS = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
