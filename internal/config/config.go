package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config" yaml:"basic_config"`
	Database    string                    `json:"database" yaml:"database"`
	Databases   map[string]DatabaseConfig `json:"databases" yaml:"databases"`
	Redis       RedisConfig               `json:"redis" yaml:"redis"`
	Storage     StorageConfig             `json:"storage" yaml:"storage"`
	AI          AIConfig                  `json:"ai" yaml:"ai"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address" yaml:"server_address"`
	AccessToken   string `json:"access_token" yaml:"access_token"`
	CORSOrigin    string `json:"cors_origin" yaml:"cors_origin"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
	Params   string `json:"params" yaml:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	// TTLSeconds bounds how long cached item reads live.
	TTLSeconds int `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// StorageConfig selects the object bucket used by the upload routes.
// An empty Driver disables uploads.
type StorageConfig struct {
	Driver    string `json:"driver" yaml:"driver"` // "", "fs" or "s3"
	Dir       string `json:"dir" yaml:"dir"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	// PublicPrefix is prepended to object keys in upload responses.
	PublicPrefix string `json:"public_prefix" yaml:"public_prefix"`
}

type AIConfig struct {
	Provider       string `json:"provider" yaml:"provider"` // "poe", "openai", "claude", "gemini"
	BaseURL        string `json:"base_url" yaml:"base_url"`
	Model          string `json:"model" yaml:"model"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	AnalyzePrompt  string `json:"analyze_prompt" yaml:"analyze_prompt"`
	ChatPrompt     string `json:"chat_prompt" yaml:"chat_prompt"`
	MaxTokens      int    `json:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

const (
	DefaultAddress   = ":8090"
	DefaultProvider  = "poe"
	DefaultBaseURL   = "https://api.poe.com/v1"
	DefaultModel     = "gemini-3-flash"
	DefaultCacheTTL  = 5 * time.Minute
	defaultDatabase  = "sqlite3"
	defaultSQLiteDSN = "file:vibe.db?_foreign_keys=on"
)

// defaultModels is the model used per provider when none is configured.
var defaultModels = map[string]string{
	"poe":    DefaultModel,
	"openai": "gpt-4o-mini",
	"claude": "claude-sonnet-4-5",
	"gemini": "gemini-2.5-flash",
}

// Load reads configuration from the provided path (defaults to config.json),
// then applies environment overrides. A missing file is not an error so the
// service can run purely from the environment.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	raw, err := os.ReadFile(absPath)
	switch {
	case err == nil:
		if err := decode(absPath, raw, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if dsn := cfg.Databases["sqlite3"].DSN; dsn != "" && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" && !filepath.IsAbs(dsn) {
		db := cfg.Databases["sqlite3"]
		db.DSN = filepath.Join(filepath.Dir(absPath), dsn)
		cfg.Databases["sqlite3"] = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.BasicConfig.ServerAddress, "VIBE_ADDR")
	setString(&c.BasicConfig.AccessToken, "ACCESS_TOKEN")
	setString(&c.BasicConfig.CORSOrigin, "CORS_ORIGIN")
	setString(&c.BasicConfig.LogLevel, "VIBE_LOG_LEVEL")
	setString(&c.AI.APIKey, "POE_API_KEY")
	setString(&c.AI.Provider, "VIBE_AI_PROVIDER")
	setString(&c.AI.Model, "VIBE_AI_MODEL")
	setString(&c.Database, "VIBE_DB")
	setString(&c.Storage.Driver, "VIBE_BUCKET")
	setString(&c.Storage.Dir, "VIBE_BUCKET_DIR")

	if dsn := os.Getenv("VIBE_DB_DSN"); dsn != "" {
		if c.Databases == nil {
			c.Databases = make(map[string]DatabaseConfig)
		}
		driver := c.Database
		if driver == "" {
			driver = defaultDatabase
		}
		db := c.Databases[driver]
		db.DSN = dsn
		c.Databases[driver] = db
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		host, port, ok := strings.Cut(addr, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultAddress
	}
	if c.BasicConfig.CORSOrigin == "" {
		c.BasicConfig.CORSOrigin = "*"
	}
	if c.BasicConfig.LogLevel == "" {
		c.BasicConfig.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if db, ok := c.Databases[defaultDatabase]; !ok || db.DSN == "" {
		db.DSN = defaultSQLiteDSN
		c.Databases[defaultDatabase] = db
	}
	if c.AI.Provider == "" {
		c.AI.Provider = DefaultProvider
	}
	if c.AI.BaseURL == "" && (c.AI.Provider == DefaultProvider) {
		c.AI.BaseURL = DefaultBaseURL
	}
	if c.AI.Model == "" {
		c.AI.Model = defaultModels[c.AI.Provider]
	}
	if c.Storage.Driver == "fs" && c.Storage.Dir == "" {
		c.Storage.Dir = "./data/uploads"
	}
	if c.Storage.PublicPrefix == "" {
		c.Storage.PublicPrefix = "/api/upload/"
	}
}

// Validate rejects structurally broken configurations. Missing credentials
// for optional integrations are reported at request time instead.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database) {
	case "sqlite", "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database: %s", c.Database)
	}
	if _, ok := c.Databases[c.Database]; !ok {
		return fmt.Errorf("database config for %s not found", c.Database)
	}
	switch c.Storage.Driver {
	case "", "fs":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be configured for s3")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	switch c.AI.Provider {
	case "poe", "openai", "claude", "gemini":
	default:
		return fmt.Errorf("unsupported ai provider: %s", c.AI.Provider)
	}
	return nil
}

// CacheTTL returns the configured item cache lifetime.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.TTLSeconds <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(r.TTLSeconds) * time.Second
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
