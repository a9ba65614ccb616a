package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
dashboard:
  base_url: "http://localhost:9000"
store:
  id: "gangnam01"
  password: "secret"
  zone: "본점"
  store_index: "12"
poll:
  interval: 2s
history:
  database_url: "memory:"
server:
  port: 9090
  allowed_origins: ["http://localhost:3000"]
notify:
  command: ["espeak-ng", "-v", "ko"]
  kafka:
    brokers: ["localhost:9092"]
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dashboard.BaseURL != "http://localhost:9000" {
		t.Errorf("Dashboard.BaseURL = %q", cfg.Dashboard.BaseURL)
	}
	if cfg.Store.ID != "gangnam01" || cfg.Store.Zone != "본점" || cfg.Store.StoreIndex != "12" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("Poll.Interval = %v, want 2s", cfg.Poll.Interval)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Notify.Command) != 3 || cfg.Notify.Command[0] != "espeak-ng" {
		t.Errorf("Notify.Command = %v", cfg.Notify.Command)
	}

	// Unset fields keep their defaults.
	if cfg.Dashboard.Timeout != 5*time.Second {
		t.Errorf("Dashboard.Timeout = %v, want default 5s", cfg.Dashboard.Timeout)
	}
	if cfg.Poll.FailureThreshold != 3 {
		t.Errorf("Poll.FailureThreshold = %d, want default 3", cfg.Poll.FailureThreshold)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if !cfg.Notify.Log {
		t.Error("Notify.Log = false, want default true")
	}
	if cfg.Notify.Kafka.Topic != "tablewatch.announcements" {
		t.Errorf("Notify.Kafka.Topic = %q, want default", cfg.Notify.Kafka.Topic)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("Poll.Interval = %v, want default 5s", cfg.Poll.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadZeroSnapshotIntervalFailsValidation(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte("poll:\n  snapshot_interval: 0s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "poll.snapshot_interval") {
		t.Errorf("Validate() = %v, want snapshot_interval error", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(p, []byte("poll: [unclosed"), 0644)
	if _, err := Load(p); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"zero snapshot interval", func(c *Config) { c.Poll.SnapshotInterval = 0 }, "poll.snapshot_interval"},
		{"zero threshold", func(c *Config) { c.Poll.FailureThreshold = 0 }, "poll.failure_threshold"},
		{"zero timeout", func(c *Config) { c.Dashboard.Timeout = 0 }, "dashboard.timeout"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"no database", func(c *Config) { c.History.DatabaseURL = "" }, "history.database_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestCredentialsFromFile(t *testing.T) {
	for _, k := range []string{EnvStoreID, EnvPassword, EnvZone, EnvStoreIndex, EnvZoneIndex} {
		t.Setenv(k, "")
	}
	cfg := defaultConfig()
	cfg.Store = StoreConfig{ID: "s1", Password: "pw", Zone: "본점"}

	creds, err := cfg.Credentials()
	if err != nil {
		t.Fatal(err)
	}
	if creds.StoreID != "s1" || creds.Password != "pw" || creds.Zone != "본점" {
		t.Errorf("creds = %+v", creds)
	}
	if creds.StoreIndex != "" || creds.ZoneIndex != "" {
		t.Errorf("empty indices should pass through, got %+v", creds)
	}
}

func TestCredentialsEnvOverride(t *testing.T) {
	t.Setenv(EnvStoreID, "env-store")
	t.Setenv(EnvPassword, "env-pw")
	t.Setenv(EnvZone, "")
	t.Setenv(EnvStoreIndex, "4")
	t.Setenv(EnvZoneIndex, "")

	cfg := defaultConfig()
	cfg.Store = StoreConfig{ID: "file-store", Password: "file-pw", Zone: "2층"}

	creds, err := cfg.Credentials()
	if err != nil {
		t.Fatal(err)
	}
	if creds.StoreID != "env-store" || creds.Password != "env-pw" || creds.StoreIndex != "4" {
		t.Errorf("env did not override: %+v", creds)
	}
	if creds.Zone != "2층" {
		t.Errorf("empty env should not clear the file value, got zone %q", creds.Zone)
	}
}

func TestCredentialsMissing(t *testing.T) {
	t.Setenv(EnvStoreID, "")
	_, err := defaultConfig().Credentials()
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	os.WriteFile(envPath, []byte(EnvStoreID+"=dotenv-store\n"+EnvPassword+"=dotenv-pw\n"), 0600)

	// Register cleanup for both keys, then clear so godotenv can set them.
	t.Setenv(EnvStoreID, "")
	t.Setenv(EnvPassword, "already-set")
	os.Unsetenv(EnvStoreID)

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv(EnvStoreID); got != "dotenv-store" {
		t.Errorf("%s = %q, want dotenv-store", EnvStoreID, got)
	}
	if got := os.Getenv(EnvPassword); got != "already-set" {
		t.Errorf("%s = %q, existing value should win", EnvPassword, got)
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != 32 {
		t.Errorf("token length = %d, want 32", len(tok))
	}
	tok2, _ := GenerateToken()
	if tok == tok2 {
		t.Error("two generated tokens should not be identical")
	}
}
