package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 2339
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/modular_ai?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultConnectTimeout = 10 * time.Second
	defaultChatTimeout    = 45 * time.Second
	defaultStreamTimeout  = 300 * time.Second
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	DSN            string         `yaml:"dsn"` // MySQL DSN
	RedisURL       string         `yaml:"redis_url"`
	Env            string         `yaml:"env"` // "development" | "production"
	AllowedOrigins []string       `yaml:"allowed_origins"`
	JWTSecret      string         `yaml:"jwt_secret"`
	Admin          AdminConfig    `yaml:"admin"`
	Upstream       UpstreamConfig `yaml:"upstream"`
}

// AdminConfig seeds the initial administrator account when the users table
// is empty.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UpstreamConfig tunes the HTTP client used against chat completion APIs.
type UpstreamConfig struct {
	ConnectTimeoutSec int `yaml:"connect_timeout_sec"`
	ChatTimeoutSec    int `yaml:"chat_timeout_sec"`
	// Streaming responses can run long; this bounds the whole request.
	StreamTimeoutSec int `yaml:"stream_timeout_sec"`
}

// ConnectTimeout returns the upstream dial timeout.
func (u UpstreamConfig) ConnectTimeout() time.Duration {
	return secondsOrDefault(u.ConnectTimeoutSec, defaultConnectTimeout)
}

// ChatTimeout returns the overall timeout for buffered chat calls.
func (u UpstreamConfig) ChatTimeout() time.Duration {
	return secondsOrDefault(u.ChatTimeoutSec, defaultChatTimeout)
}

// StreamTimeout returns the overall timeout for streamed chat calls.
func (u UpstreamConfig) StreamTimeout() time.Duration {
	return secondsOrDefault(u.StreamTimeoutSec, defaultStreamTimeout)
}

func secondsOrDefault(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// Load reads YAML config from path, applies env overrides and defaults.
// A missing file is not an error; env vars and defaults apply alone.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (config or MAI_JWT_SECRET)")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("MAI_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAI_DSN")); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("MAI_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MAI_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("MAI_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("MAI_ADMIN_USERNAME")); v != "" {
		cfg.Admin.Username = v
	}
	if v := strings.TrimSpace(os.Getenv("MAI_ADMIN_PASSWORD")); v != "" {
		cfg.Admin.Password = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DSN == "" {
		cfg.DSN = defaultDSN
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
}
