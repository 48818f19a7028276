package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != DefaultAddress {
		t.Fatalf("expected default address, got %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Database != "sqlite3" || cfg.Databases["sqlite3"].DSN == "" {
		t.Fatalf("expected sqlite default, got %q %+v", cfg.Database, cfg.Databases)
	}
	if cfg.AI.Provider != "poe" || cfg.AI.BaseURL != DefaultBaseURL || cfg.AI.Model != DefaultModel {
		t.Fatalf("unexpected ai defaults: %+v", cfg.AI)
	}
	if cfg.BasicConfig.CORSOrigin != "*" {
		t.Fatalf("expected wildcard cors origin, got %q", cfg.BasicConfig.CORSOrigin)
	}
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9000", "access_token": "from-file"},
		"databases": {"sqlite3": {"dsn": "items.db"}},
		"storage": {"driver": "fs"},
		"ai": {"api_key": "file-key"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ACCESS_TOKEN", "from-env")
	t.Setenv("POE_API_KEY", "env-key")
	t.Setenv("REDIS_ADDR", "cache.local:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9000" {
		t.Fatalf("server address not read from file: %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.AccessToken != "from-env" {
		t.Fatalf("env should override access token, got %q", cfg.BasicConfig.AccessToken)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Fatalf("env should override api key, got %q", cfg.AI.APIKey)
	}
	if want := filepath.Join(dir, "items.db"); cfg.Databases["sqlite3"].DSN != want {
		t.Fatalf("relative dsn not resolved: want %q got %q", want, cfg.Databases["sqlite3"].DSN)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Host != "cache.local" || cfg.Redis.Port != 6380 {
		t.Fatalf("redis env not applied: %+v", cfg.Redis)
	}
	if cfg.Storage.Dir == "" {
		t.Fatalf("expected default fs storage dir")
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "basic_config:\n  cors_origin: https://app.example.com\nai:\n  provider: claude\n  model: claude-sonnet\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BasicConfig.CORSOrigin != "https://app.example.com" {
		t.Fatalf("cors origin mismatch: %q", cfg.BasicConfig.CORSOrigin)
	}
	if cfg.AI.Provider != "claude" || cfg.AI.Model != "claude-sonnet" {
		t.Fatalf("ai section mismatch: %+v", cfg.AI)
	}
	if cfg.AI.BaseURL != "" {
		t.Fatalf("non-poe provider should not inherit poe base url, got %q", cfg.AI.BaseURL)
	}
}

func TestDefaultModelFollowsProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"poe", DefaultModel},
		{"openai", "gpt-4o-mini"},
		{"claude", "claude-sonnet-4-5"},
		{"gemini", "gemini-2.5-flash"},
	}
	for _, tc := range cases {
		clearEnv(t)
		t.Setenv("VIBE_AI_PROVIDER", tc.provider)
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		if err != nil {
			t.Fatalf("%s: Load error: %v", tc.provider, err)
		}
		if cfg.AI.Model != tc.want {
			t.Fatalf("%s: expected model %q, got %q", tc.provider, tc.want, cfg.AI.Model)
		}
	}

	clearEnv(t)
	t.Setenv("VIBE_AI_PROVIDER", "claude")
	t.Setenv("VIBE_AI_MODEL", "claude-haiku-4-5")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AI.Model != "claude-haiku-4-5" {
		t.Fatalf("explicit model should win, got %q", cfg.AI.Model)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := &Config{Database: "postgres", Databases: map[string]DatabaseConfig{"postgres": {}}, AI: AIConfig{Provider: "poe"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported database error")
	}
	cfg = &Config{Database: "sqlite3", Databases: map[string]DatabaseConfig{"sqlite3": {}}, Storage: StorageConfig{Driver: "s3"}, AI: AIConfig{Provider: "poe"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	cfg.Storage.Bucket = "media"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VIBE_ADDR", "ACCESS_TOKEN", "CORS_ORIGIN", "VIBE_LOG_LEVEL", "POE_API_KEY",
		"VIBE_AI_PROVIDER", "VIBE_AI_MODEL", "VIBE_DB", "VIBE_DB_DSN", "VIBE_BUCKET",
		"VIBE_BUCKET_DIR", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
}
