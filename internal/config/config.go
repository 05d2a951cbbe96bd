package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Preview  PreviewConfig  `yaml:"preview"`
	Database DatabaseConfig `yaml:"clickhouse"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// BackendConfig points at the reports REST API and the auth server
type BackendConfig struct {
	APIBaseURL    string        `yaml:"api_base_url"`
	AuthServerURL string        `yaml:"auth_server_url"`
	PublicURL     string        `yaml:"public_url"`
	SessionCookie string        `yaml:"session_cookie"`
	Timeout       time.Duration `yaml:"timeout"`
}

// PreviewConfig controls how previews run. Executor is "api" (backend
// preview endpoint) or "clickhouse" (direct connection).
type PreviewConfig struct {
	Executor       string        `yaml:"executor"`
	Limit          int           `yaml:"limit"`
	Timeout        time.Duration `yaml:"timeout"`
	EscapeLiterals bool          `yaml:"escape_literals"`
	Concurrency    int           `yaml:"concurrency"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CacheConfig selects the preview result cache. Backend is "memory",
// "redis" or "none".
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "20003",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Backend: BackendConfig{
			APIBaseURL:    "http://localhost:8080",
			AuthServerURL: "http://localhost:8081",
			PublicURL:     "http://localhost:3000",
			SessionCookie: "session",
			Timeout:       30 * time.Second,
		},
		Preview: PreviewConfig{
			Executor:    "api",
			Limit:       1000,
			Timeout:     60 * time.Second,
			Concurrency: 4,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "9000",
			Database: "default",
			Username: "default",
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 500,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.CORSOrigins = getList("CORS_ORIGINS", cfg.Server.CORSOrigins)

	cfg.Backend.APIBaseURL = getEnv("API_BASE_URL", cfg.Backend.APIBaseURL)
	cfg.Backend.AuthServerURL = getEnv("AUTH_SERVER_URL", cfg.Backend.AuthServerURL)
	cfg.Backend.PublicURL = getEnv("PUBLIC_URL", cfg.Backend.PublicURL)
	cfg.Backend.SessionCookie = getEnv("SESSION_COOKIE", cfg.Backend.SessionCookie)

	cfg.Preview.Executor = getEnv("PREVIEW_EXECUTOR", cfg.Preview.Executor)
	cfg.Preview.EscapeLiterals = getBool("SQL_ESCAPE_LITERALS", cfg.Preview.EscapeLiterals)

	cfg.Database.Host = getEnv("CLICKHOUSE_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("CLICKHOUSE_PORT", cfg.Database.Port)
	cfg.Database.Database = getEnv("CLICKHOUSE_DATABASE", cfg.Database.Database)
	cfg.Database.Username = getEnv("CLICKHOUSE_USER", cfg.Database.Username)
	cfg.Database.Password = getEnv("CLICKHOUSE_PASSWORD", cfg.Database.Password)

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.Backend.Timeout, err = getDuration("API_TIMEOUT", cfg.Backend.Timeout); err != nil {
		return nil, err
	}
	if cfg.Preview.Timeout, err = getDuration("PREVIEW_TIMEOUT", cfg.Preview.Timeout); err != nil {
		return nil, err
	}
	if cfg.Cache.TTL, err = getDuration("CACHE_TTL", cfg.Cache.TTL); err != nil {
		return nil, err
	}
	if cfg.Preview.Limit, err = getInt("PREVIEW_LIMIT", cfg.Preview.Limit); err != nil {
		return nil, err
	}
	if cfg.Preview.Concurrency, err = getInt("PREVIEW_CONCURRENCY", cfg.Preview.Concurrency); err != nil {
		return nil, err
	}
	if cfg.Cache.MaxEntries, err = getInt("CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Preview.Executor {
	case "api", "clickhouse":
	default:
		return fmt.Errorf("invalid PREVIEW_EXECUTOR %q: want api or clickhouse", c.Preview.Executor)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want memory, redis or none", c.Cache.Backend)
	}
	if c.Preview.Limit <= 0 {
		return fmt.Errorf("PREVIEW_LIMIT must be positive")
	}
	if c.Preview.Concurrency <= 0 {
		c.Preview.Concurrency = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
