package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pps-player/tablewatch/internal/dashboard"
)

// ErrNoCredentials is returned when no store id is configured in the file
// or the environment.
var ErrNoCredentials = errors.New("no store credentials configured")

// Environment variables that override the store block.
const (
	EnvStoreID    = "TABLEWATCH_STORE_ID"
	EnvPassword   = "TABLEWATCH_STORE_PASSWORD"
	EnvZone       = "TABLEWATCH_ZONE"
	EnvStoreIndex = "TABLEWATCH_STORE_INDEX"
	EnvZoneIndex  = "TABLEWATCH_ZONE_INDEX"
)

type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Store     StoreConfig     `yaml:"store"`
	Poll      PollConfig      `yaml:"poll"`
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type DashboardConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type StoreConfig struct {
	ID         string `yaml:"id"`
	Password   string `yaml:"password"`
	Zone       string `yaml:"zone"`
	StoreIndex string `yaml:"store_index"`
	ZoneIndex  string `yaml:"zone_index"`
}

type PollConfig struct {
	Interval         time.Duration `yaml:"interval"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

type HistoryConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"` // 0 means unlimited
}

type NotifyConfig struct {
	Log     bool        `yaml:"log"`
	Command []string    `yaml:"command"` // program and leading args; the text is appended
	Redis   RedisConfig `yaml:"redis"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type TelemetryConfig struct {
	Stdout      bool   `yaml:"stdout"`
	ServiceName string `yaml:"service_name"`
}

func defaultConfig() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			BaseURL:      dashboard.DefaultBaseURL,
			Timeout:      5 * time.Second,
			ProbeTimeout: 3 * time.Second,
		},
		Poll: PollConfig{
			Interval:         5 * time.Second,
			FailureThreshold: 3,
			SnapshotInterval: 5 * time.Second,
		},
		History: HistoryConfig{
			DatabaseURL: "sqlite:file:tablewatch.db?_pragma=busy_timeout(5000)",
		},
		Server: ServerConfig{
			Port:           8080,
			Host:           "127.0.0.1",
			MaxConnections: 64,
		},
		Notify: NotifyConfig{
			Log: true,
			Redis: RedisConfig{
				Channel: "tablewatch:announcements",
			},
			Kafka: KafkaConfig{
				Topic: "tablewatch.announcements",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "tablewatch",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults if the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate rejects settings the poller cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll.snapshot_interval must be positive, got %s", c.Poll.SnapshotInterval))
	}
	if c.Poll.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("poll.failure_threshold must be at least 1, got %d", c.Poll.FailureThreshold))
	}
	if c.Dashboard.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("dashboard.timeout must be positive, got %s", c.Dashboard.Timeout))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.History.DatabaseURL == "" {
		errs = append(errs, errors.New("history.database_url is empty"))
	}
	return errors.Join(errs...)
}

// LoadEnv reads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Credentials resolves the store login from the store block, overridden by
// TABLEWATCH_* environment variables.
func (c *Config) Credentials() (dashboard.Credentials, error) {
	creds := dashboard.Credentials{
		StoreID:    envOr(EnvStoreID, c.Store.ID),
		Password:   envOr(EnvPassword, c.Store.Password),
		Zone:       envOr(EnvZone, c.Store.Zone),
		StoreIndex: envOr(EnvStoreIndex, c.Store.StoreIndex),
		ZoneIndex:  envOr(EnvZoneIndex, c.Store.ZoneIndex),
	}
	if creds.StoreID == "" {
		return dashboard.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// GenerateToken returns a random 32-character hex token for server.auth_token.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
