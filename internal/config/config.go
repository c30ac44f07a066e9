// Package config loads and validates the YAML configuration. Secrets
// (ANTHROPIC_API_KEY, NOTION_API_KEY) come from the environment, loaded via
// godotenv in main; the file holds everything else.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/brandintel/internal/retry"
)

// Config is the root configuration.
type Config struct {
	// Database is the sqlite file path; ":memory:" for ephemeral runs.
	Database string `yaml:"database"`

	LLM    LLMConfig    `yaml:"llm"`
	NATS   NATSConfig   `yaml:"nats"`
	Sync   SyncConfig   `yaml:"sync"`
	Export ExportConfig `yaml:"export"`
	Daemon DaemonConfig `yaml:"daemon"`
}

// LLMConfig carries the model parameters for both protocol phases.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// NATSConfig enables the broker-backed change feed; when disabled the
// in-process bus is used instead.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// SyncConfig tunes the live channel's reconnect and polling behavior.
type SyncConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	BackoffMode    string        `yaml:"backoff_mode"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	MaxAttempts    int           `yaml:"max_attempts"`
}

// Policy builds the reconnect backoff policy from the sync settings.
func (s SyncConfig) Policy() retry.Policy {
	return retry.NewPolicy(retry.BackoffMode(s.BackoffMode), s.BackoffInitial, s.BackoffMax, s.MaxAttempts)
}

// ExportConfig configures the Notion export destination.
type ExportConfig struct {
	NotionParentPage string `yaml:"notion_parent_page"`
}

// DaemonConfig configures daemon mode.
type DaemonConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	// WatchDir maps content snapshot files (<subject-id>.md) to subjects.
	WatchDir string `yaml:"watch_dir"`
}

// Load reads the file, applies defaults, and validates. A missing file is
// not an error: the defaults stand alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = "brandintel.db"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = 30 * time.Second
	}
	if c.Sync.BackoffMode == "" {
		c.Sync.BackoffMode = "linear"
	}
	if c.Sync.BackoffInitial <= 0 {
		c.Sync.BackoffInitial = time.Second
	}
	if c.Sync.BackoffMax <= 0 {
		c.Sync.BackoffMax = 30 * time.Second
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = 5
	}
	if c.Daemon.RefreshInterval <= 0 {
		c.Daemon.RefreshInterval = time.Hour
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = ":9090"
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.Sync.PollInterval < time.Second {
		return fmt.Errorf("sync.poll_interval must be at least 1s")
	}
	if c.Sync.BackoffInitial > c.Sync.BackoffMax {
		return fmt.Errorf("sync.backoff_initial exceeds sync.backoff_max")
	}
	return nil
}
