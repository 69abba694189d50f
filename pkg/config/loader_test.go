package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_Load(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9090
logging:
  level: debug
  format: json
rate_limiting:
  backend: memory
  fail_mode: closed
  sweep_interval: 1m
  policies:
    - name: ai
      max_requests: 40
      window: 30s
`)

	cfg, err := LoadConfig(LoaderOptions{Path: path})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.RateLimit.FailMode != "closed" {
		t.Errorf("fail_mode = %q", cfg.RateLimit.FailMode)
	}
	if cfg.RateLimit.SweepInterval != time.Minute {
		t.Errorf("sweep_interval = %v", cfg.RateLimit.SweepInterval)
	}
	if len(cfg.RateLimit.Policies) != 1 {
		t.Fatalf("expected 1 policy override, got %d", len(cfg.RateLimit.Policies))
	}
	p := cfg.RateLimit.Policies[0]
	if p.Name != "ai" || p.MaxRequests != 40 || p.Window != 30*time.Second {
		t.Errorf("policy override = %+v", p)
	}
}

func TestLoader_DefaultsApplied(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)

	cfg, err := LoadConfig(LoaderOptions{Path: path})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.RateLimit == nil || cfg.RateLimit.Backend != "memory" {
		t.Errorf("expected default rate_limiting section")
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("ADMISSION_TEST_REDIS_PASSWORD", "s3cret")

	path := writeConfigFile(t, `
rate_limiting:
  backend: redis
redis:
  addr: localhost:6379
  password: ${ADMISSION_TEST_REDIS_PASSWORD}
`)

	cfg, err := LoadConfig(LoaderOptions{Path: path})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Redis.Password != "s3cret" {
		t.Errorf("env var not expanded: %q", cfg.Redis.Password)
	}
}

func TestLoader_InvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
rate_limiting:
  backend: carrier-pigeon
`)

	if _, err := LoadConfig(LoaderOptions{Path: path}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoader_MissingFile(t *testing.T) {
	if _, err := LoadConfig(LoaderOptions{Path: "/nonexistent/config.yaml"}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoader_EmptyPath(t *testing.T) {
	if _, err := NewLoader(LoaderOptions{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoader_WatchReload(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
rate_limiting:
  fail_mode: closed
  policies:
    - name: ai
      max_requests: 40
      window: 1m
`)

	reloads := make(chan *Config, 8)
	loader, err := NewLoader(LoaderOptions{
		Path:  path,
		Watch: true,
		OnChange: func(cfg *Config) error {
			reloads <- cfg
			return nil
		},
	})
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.RateLimit.FailMode != "closed" || len(cfg.RateLimit.Policies) != 1 {
		t.Fatalf("unexpected initial config: %+v", cfg.RateLimit)
	}

	// Rewrite the file: the port changes and the fail_mode key disappears.
	// The reload must deliver the new tree, not a merge over the old one.
	if err := os.WriteFile(path, []byte(`
server:
  port: 9191
rate_limiting:
  policies:
    - name: ai
      max_requests: 50
      window: 1m
`), 0o644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case newCfg := <-reloads:
			if newCfg.Server.Port != 9191 {
				// A watcher may fire for the old content once; keep waiting.
				continue
			}
			if newCfg.RateLimit.FailMode != "open" {
				t.Errorf("deleted fail_mode survived the reload: %q", newCfg.RateLimit.FailMode)
			}
			if len(newCfg.RateLimit.Policies) != 1 || newCfg.RateLimit.Policies[0].MaxRequests != 50 {
				t.Errorf("policy override not reloaded: %+v", newCfg.RateLimit.Policies)
			}
			return
		case <-deadline:
			t.Fatalf("config change was never delivered")
		}
	}
}

func TestLoader_WatchKeepsPreviousOnBadReload(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)

	reloads := make(chan *Config, 8)
	loader, err := NewLoader(LoaderOptions{
		Path:  path,
		Watch: true,
		OnChange: func(cfg *Config) error {
			reloads <- cfg
			return nil
		},
	})
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}
	if _, err := loader.Load(); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// An invalid rewrite must not reach OnChange.
	if err := os.WriteFile(path, []byte(`
rate_limiting:
  backend: carrier-pigeon
`), 0o644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}

	select {
	case cfg := <-reloads:
		t.Fatalf("invalid config was delivered: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
