// Package config loads service settings. Precedence, lowest first: built-in
// defaults, the YAML file named by FINPLAN_CONFIG, environment variables.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Session backends
const (
	SessionsInStore = "store"
	SessionsInRedis = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        int
	Debug       bool
	LogLevel    string
	LogDir      string
	CORSOrigins []string
	Timezone    string

	// Storage
	StoreBackend   string
	SQLitePath     string
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string
	SessionBackend string
	RedisURL       string
	RedisRetention time.Duration
	CookieSecure   bool
	BcryptCost     int

	// RabbitMQ
	RabbitMQURL    string
	WorkerCount    int
	WorkerPrefetch int

	// LLM
	LLMProvider string // openai, ollama
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string
	OllamaURL   string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For
	TrustedProxies []string
}

// Load builds the configuration from defaults, the optional YAML file and
// then the environment, and validates the result.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("FINPLAN_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in settings
func Defaults() *Config {
	return &Config{
		Port:           4000,
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:5173"},
		Timezone:       "Asia/Seoul",
		StoreBackend:   BackendSQLite,
		SQLitePath:     "./finplan.db",
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "finplan",
		SessionBackend: SessionsInStore,
		RedisURL:       "redis://localhost:6379/0",
		BcryptCost:     10,
		WorkerCount:    2,
		WorkerPrefetch: 10,
		LLMProvider:    "openai",
		LLMModel:       "gpt-4o-mini",
		OllamaURL:      "http://localhost:11434",
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

// applyEnv overrides every setting whose environment variable is set
func (c *Config) applyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGODB_DATABASE", c.MongoDatabase)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SessionBackend = getEnv("SESSION_BACKEND", c.SessionBackend)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisRetention = getEnvDuration("REDIS_SESSION_RETENTION", c.RedisRetention)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)
	c.BcryptCost = getEnvInt("BCRYPT_COST", c.BcryptCost)
	c.RabbitMQURL = getEnv("RABBITMQ_URL", c.RabbitMQURL)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.WorkerPrefetch = getEnvInt("WORKER_PREFETCH", c.WorkerPrefetch)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMAPIKey = getEnv("OPENAI_API_KEY", c.LLMAPIKey)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.OllamaURL = getEnv("OLLAMA_URL", c.OllamaURL)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.TrustedProxies)
}

// Validate checks settings that would otherwise fail later at startup
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendMongo:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.SessionBackend {
	case SessionsInStore, SessionsInRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.LLMProvider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}

	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
