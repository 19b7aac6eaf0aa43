// Package config loads the sequencer's YAML configuration with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/sequencer/internal/domain"
)

// Config holds all configuration for the sequencer.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Database  DatabaseConfig    `yaml:"database"`
	Redis     RedisConfig       `yaml:"redis"`
	SES       SESConfig         `yaml:"ses"`
	Sender    SenderConfig      `yaml:"sender"`
	Dispatch  DispatchConfig    `yaml:"dispatch"`
	Logging   LoggingConfig     `yaml:"logging"`
	Templates []domain.Template `yaml:"templates"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis settings for the dispatch lock. Optional:
// a single-replica deployment runs fine without it.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials. When credentials are absent the
// dispatcher falls back to the log-only transport.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// SenderConfig holds the outbound identity and tracking settings.
type SenderConfig struct {
	FromName       string `yaml:"from_name"`
	FromEmail      string `yaml:"from_email"`
	ReplyTo        string `yaml:"reply_to"`
	BaseURL        string `yaml:"base_url"`
	TrackingSecret string `yaml:"tracking_secret"`
}

// DispatchConfig holds the dispatcher's tunables.
type DispatchConfig struct {
	BatchSize           int `yaml:"batch_size"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	SendTimeoutSeconds  int `yaml:"send_timeout_seconds"`
}

// LoggingConfig controls log level and PII redaction.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// PollInterval returns the dispatcher poll interval as a duration.
func (d DispatchConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSeconds) * time.Second
}

// SendTimeout returns the per-send timeout as a duration.
func (d DispatchConfig) SendTimeout() time.Duration {
	return time.Duration(d.SendTimeoutSeconds) * time.Second
}

// RedactEnabled reports whether PII redaction is on. Defaults to on.
func (l LoggingConfig) RedactEnabled() bool {
	return l.RedactPII == nil || *l.RedactPII
}

// Load reads configuration from a YAML file and applies defaults. A
// missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SENDER_FROM_EMAIL"); v != "" {
		cfg.Sender.FromEmail = v
	}
	if v := os.Getenv("SENDER_BASE_URL"); v != "" {
		cfg.Sender.BaseURL = v
	}
	if v := os.Getenv("TRACKING_SECRET"); v != "" {
		cfg.Sender.TrackingSecret = v
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Sender.FromName == "" {
		cfg.Sender.FromName = "Outreach"
	}
	if cfg.Sender.BaseURL == "" {
		cfg.Sender.BaseURL = "http://localhost:8080"
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 50
	}
	if cfg.Dispatch.PollIntervalSeconds == 0 {
		cfg.Dispatch.PollIntervalSeconds = 30
	}
	if cfg.Dispatch.SendTimeoutSeconds == 0 {
		cfg.Dispatch.SendTimeoutSeconds = 15
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if len(cfg.Templates) == 0 {
		cfg.Templates = defaultTemplates()
	}
}

// defaultTemplates is the stock three-step drip used until real copy is
// configured.
func defaultTemplates() []domain.Template {
	return []domain.Template{
		{
			Step:        1,
			Subject:     "Quick question, {{ first_name | default: \"there\" }}",
			Body:        `<p>Hi {{ first_name | default: "there" }},</p><p>Reaching out to introduce ourselves.</p><p><a href="{{ unsubscribe_url }}">Unsubscribe</a></p>`,
			DelayDays:   0,
			TrackingTag: "step-1-intro",
		},
		{
			Step:        2,
			Subject:     "Following up",
			Body:        `<p>Hi {{ first_name | default: "there" }},</p><p>Wanted to bump this to the top of your inbox.</p><p><a href="{{ unsubscribe_url }}">Unsubscribe</a></p>`,
			DelayDays:   2,
			TrackingTag: "step-2-followup",
		},
		{
			Step:        3,
			Subject:     "Last note from me",
			Body:        `<p>Hi {{ first_name | default: "there" }},</p><p>Closing the loop; I won't reach out again after this.</p><p><a href="{{ unsubscribe_url }}">Unsubscribe</a></p>`,
			DelayDays:   5,
			TrackingTag: "step-3-breakup",
		},
	}
}
