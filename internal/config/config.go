// Package config loads application configuration from a YAML file with
// environment variable overrides. Secrets can live in a local .env file
// during development and in real environment variables in deployment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quillhub/quillhub/internal/feed"
	"github.com/quillhub/quillhub/internal/notify"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Content   ContentConfig   `yaml:"content"`
	Identity  IdentityConfig  `yaml:"identity"`
	Auth      AuthConfig      `yaml:"auth"`
	Notify    NotifyConfig    `yaml:"notify"`
	Feed      FeedConfig      `yaml:"feed"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection settings for rate limiting.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RateLimitConfig configures a single fixed-window limit.
type RateLimitConfig struct {
	CreateMax       int `yaml:"create_max"`
	CreateWindowSec int `yaml:"create_window_sec"`
	AnnounceMax     int `yaml:"announce_max"`
	AnnounceWindow  int `yaml:"announce_window_sec"`
}

// ContentConfig points at the page store that backs main pages and issues.
type ContentConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the content client timeout.
func (c ContentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdentityConfig seeds the actor permission provider.
type IdentityConfig struct {
	BlockedActors []string `yaml:"blocked_actors"`
	Admins        []string `yaml:"admins"`
	Creators      []string `yaml:"creators"`
}

// AuthConfig holds Google OAuth authentication configuration.
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	RedirectURL        string `yaml:"redirect_url"`
	AllowedDomain      string `yaml:"allowed_domain"`
	CookieName         string `yaml:"cookie_name"`
	CookieMaxAge       int    `yaml:"cookie_max_age"`
}

// NotifyConfig configures announcement delivery.
type NotifyConfig struct {
	Webhooks []notify.Endpoint `yaml:"webhooks"`
	Email    EmailConfig       `yaml:"email"`
}

// EmailConfig wraps the SES settings with an enable switch.
type EmailConfig struct {
	Enabled bool `yaml:"enabled"`
	notify.SESConfig `yaml:",inline"`
}

// FeedConfig configures the RSS issue importer.
type FeedConfig struct {
	Enabled            bool          `yaml:"enabled"`
	PollIntervalMinutes int          `yaml:"poll_interval_minutes"`
	Sources            []feed.Source `yaml:"sources"`
}

// PollInterval returns the importer poll interval.
func (c FeedConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// Load reads and parses the YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.RateLimit.CreateMax == 0 {
		cfg.RateLimit.CreateMax = 3
	}
	if cfg.RateLimit.CreateWindowSec == 0 {
		cfg.RateLimit.CreateWindowSec = 3600
	}
	if cfg.RateLimit.AnnounceMax == 0 {
		cfg.RateLimit.AnnounceMax = 10
	}
	if cfg.RateLimit.AnnounceWindow == 0 {
		cfg.RateLimit.AnnounceWindow = 3600
	}
	if cfg.Content.TimeoutSeconds == 0 {
		cfg.Content.TimeoutSeconds = 10
	}
	if cfg.Notify.Email.Region == "" {
		cfg.Notify.Email.Region = "us-west-2"
	}
	if cfg.Feed.PollIntervalMinutes == 0 {
		cfg.Feed.PollIntervalMinutes = 60
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "quillhub_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CONTENT_BASE_URL"); v != "" {
		cfg.Content.BaseURL = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("AUTH_REDIRECT_URL"); v != "" {
		cfg.Auth.RedirectURL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notify.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notify.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Notify.Email.Region = v
	}
	if v := os.Getenv("NOTIFY_FROM_EMAIL"); v != "" {
		cfg.Notify.Email.FromEmail = v
	}
	if v := os.Getenv("BLOCKED_ACTORS"); v != "" {
		cfg.Identity.BlockedActors = splitList(v)
	}
	if v := os.Getenv("ADMIN_ACTORS"); v != "" {
		cfg.Identity.Admins = splitList(v)
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
