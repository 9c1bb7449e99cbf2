package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type testScheduler struct {
	Window        int           `mapstructure:"window"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
	Timeout       time.Duration `mapstructure:"completion_timeout"`
	SubmitRetry   struct {
		MaxAttempts int `mapstructure:"max_attempts"`
	} `mapstructure:"submit_retry"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Scheduler     testScheduler `mapstructure:"scheduler"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func noEnv() []string { return nil }

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Name != "npuflow" {
			t.Errorf("expected default name, got %q", cfg.Name)
		}
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "svc", Environment: "staging"}
		c.Logging.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment must be one of"},
		{"invalid logging", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: npuflow-test
environment: staging
scheduler:
  window: 4
  queue_capacity: 32
  completion_timeout: 2s
  submit_retry:
    max_attempts: 7
`)

	var cfg testConfig
	if err := LoadConfig("npuflow", &cfg, WithConfigFile(path), WithEnviron(noEnv)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "npuflow-test" || cfg.Environment != "staging" {
		t.Errorf("service fields not loaded: %+v", cfg.ServiceConfig)
	}
	if cfg.Scheduler.Window != 4 || cfg.Scheduler.QueueCapacity != 32 {
		t.Errorf("scheduler fields not loaded: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Scheduler.Timeout)
	}
	if cfg.Scheduler.SubmitRetry.MaxAttempts != 7 {
		t.Errorf("expected max_attempts 7, got %d", cfg.Scheduler.SubmitRetry.MaxAttempts)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "scheduler:\n  window: 4\n")
	env := func() []string {
		return []string{
			"SCHEDULER_WINDOW=9",
			"SCHEDULER_QUEUE_CAPACITY=64",
			"SCHEDULER_SUBMIT_RETRY_MAX_ATTEMPTS=2",
			"SERVER=shadow",
		}
	}

	var cfg testConfig
	if err := LoadConfig("npuflow", &cfg, WithConfigFile(path), WithEnviron(env)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scheduler.Window != 9 {
		t.Errorf("expected env override 9, got %d", cfg.Scheduler.Window)
	}
	if cfg.Scheduler.QueueCapacity != 64 {
		t.Errorf("expected queue_capacity 64, got %d", cfg.Scheduler.QueueCapacity)
	}
	if cfg.Scheduler.SubmitRetry.MaxAttempts != 2 {
		t.Errorf("expected max_attempts 2, got %d", cfg.Scheduler.SubmitRetry.MaxAttempts)
	}
}

func TestLoadConfigEnvPrefix(t *testing.T) {
	env := func() []string {
		return []string{"NPUFLOW_SCHEDULER_WINDOW=5", "SCHEDULER_QUEUE_CAPACITY=64"}
	}
	var cfg testConfig
	err := LoadConfig("npuflow", &cfg,
		WithFileSystem(&mockFS{}), WithEnviron(env), WithEnvPrefix("NPUFLOW_"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scheduler.Window != 5 {
		t.Errorf("expected prefixed override 5, got %d", cfg.Scheduler.Window)
	}
	if cfg.Scheduler.QueueCapacity != 0 {
		t.Errorf("unprefixed variable should be ignored, got %d", cfg.Scheduler.QueueCapacity)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("npuflow", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnviron(noEnv))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadConfigNoFilesDiscovered(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("npuflow", &cfg, WithFileSystem(&mockFS{}), WithEnviron(noEnv)); err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./.env": true}}
	var cfg testConfig
	if err := LoadConfig("npuflow", &cfg, WithFileSystem(fs), WithEnviron(noEnv)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !slices.Equal(fs.loaded, []string{"./.env"}) {
		t.Errorf("expected .env to be loaded, got %v", fs.loaded)
	}
}

func TestDiscoveredConfigPath(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./cmd/npuflow/config.yml": true}}
	if got := firstExisting(fs, configSearchPaths("npuflow")); got != "./cmd/npuflow/config.yml" {
		t.Errorf("expected cmd config path, got %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SCHEDULER_QUEUE_CAPACITY")
	for _, want := range []string{
		"scheduler_queue_capacity",
		"scheduler.queue.capacity",
		"scheduler.queue_capacity",
		"scheduler_queue.capacity",
	} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if len(got) != 4 {
		t.Errorf("expected 4 variants, got %d", len(got))
	}
	if v := envKeyVariants("PATH"); len(v) != 1 || v[0] != "path" {
		t.Errorf("single segment = %v", v)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}
