package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "jwt_secret: s3cret\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != defaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, defaultPort)
	}
	if cfg.Env != "development" || !cfg.IsDev() {
		t.Errorf("Env = %q, should default to development", cfg.Env)
	}
	if cfg.Admin.Username != "admin" {
		t.Errorf("Admin.Username = %q", cfg.Admin.Username)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, `
port: 9000
env: production
jwt_secret: s3cret
admin:
  username: root
  password: hunter2
upstream:
  chat_timeout_sec: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("production config reported as dev")
	}
	if cfg.Admin.Username != "root" || cfg.Admin.Password != "hunter2" {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
	if got := cfg.Upstream.ChatTimeout(); got != 60*time.Second {
		t.Errorf("ChatTimeout = %v", got)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, "port: 9000\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing jwt_secret")
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("MAI_JWT_SECRET", "env-secret")
	t.Setenv("MAI_PORT", "8081")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.Port != 8081 {
		t.Errorf("Port = %d", cfg.Port)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("MAI_ENV", "production")
	path := writeConfig(t, "jwt_secret: s3cret\nenv: development\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, env var should win", cfg.Env)
	}
}

func TestUpstreamTimeoutDefaults(t *testing.T) {
	var u UpstreamConfig
	if got := u.ConnectTimeout(); got != defaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v", got)
	}
	if got := u.ChatTimeout(); got != defaultChatTimeout {
		t.Errorf("ChatTimeout = %v", got)
	}
	if got := u.StreamTimeout(); got != defaultStreamTimeout {
		t.Errorf("StreamTimeout = %v", got)
	}
}
