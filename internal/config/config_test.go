package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/brandintel/internal/retry"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database != "brandintel.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.LLM.Model == "" || cfg.LLM.MaxTokens != 4096 {
		t.Errorf("llm defaults not applied: %+v", cfg.LLM)
	}
	if cfg.Sync.PollInterval != 30*time.Second || cfg.Sync.MaxAttempts != 5 {
		t.Errorf("sync defaults not applied: %+v", cfg.Sync)
	}
	if cfg.NATS.Enabled {
		t.Error("nats enabled by default")
	}
	if cfg.Daemon.RefreshInterval != time.Hour || cfg.Daemon.MetricsAddr != ":9090" {
		t.Errorf("daemon defaults not applied: %+v", cfg.Daemon)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database: /var/lib/brandintel/data.db
llm:
  model: claude-haiku-3-5
nats:
  enabled: true
sync:
  poll_interval: 10s
  max_attempts: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database != "/var/lib/brandintel/data.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.LLM.Model != "claude-haiku-3-5" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("unset max_tokens did not default: %d", cfg.LLM.MaxTokens)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("nats = %+v", cfg.NATS)
	}
	if cfg.Sync.PollInterval != 10*time.Second || cfg.Sync.MaxAttempts != 3 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Sync.BackoffMode != "linear" {
		t.Errorf("backoff_mode = %q", cfg.Sync.BackoffMode)
	}
}

func TestSyncPolicyCarriesConfiguredBackoff(t *testing.T) {
	sync := SyncConfig{
		PollInterval:   10 * time.Second,
		BackoffMode:    "exponential",
		BackoffInitial: 2 * time.Second,
		BackoffMax:     time.Minute,
		MaxAttempts:    8,
	}
	want := retry.Policy{
		Mode:        retry.BackoffExponential,
		Initial:     2 * time.Second,
		Max:         time.Minute,
		MaxAttempts: 8,
	}
	if got := sync.Policy(); got != want {
		t.Errorf("policy = %+v, want %+v", got, want)
	}

	// An unrecognized mode keeps the policy usable rather than failing.
	sync.BackoffMode = "fibonacci"
	if got := sync.Policy().Mode; got != retry.BackoffLinear {
		t.Errorf("unknown mode = %s, want linear fallback", got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"sub-second poll interval", func(c *Config) { c.Sync.PollInterval = 200 * time.Millisecond }, true},
		{"inverted backoff bounds", func(c *Config) {
			c.Sync.BackoffInitial = time.Minute
			c.Sync.BackoffMax = time.Second
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
