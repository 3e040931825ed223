package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for the optional YAML file. Pointer fields
// distinguish "absent" from zero values so only set keys override.
type FileConfig struct {
	Server struct {
		Port        *int     `yaml:"port"`
		Debug       *bool    `yaml:"debug"`
		LogLevel    *string  `yaml:"log_level"`
		LogDir      *string  `yaml:"log_dir"`
		CORSOrigins []string `yaml:"cors_origins"`
		Timezone    *string  `yaml:"timezone"`
	} `yaml:"server"`

	Storage struct {
		Backend       *string `yaml:"backend"`
		SQLitePath    *string `yaml:"sqlite_path"`
		MongoURI      *string `yaml:"mongodb_uri"`
		MongoDatabase *string `yaml:"mongodb_database"`
		DatabaseURL   *string `yaml:"database_url"`
	} `yaml:"storage"`

	Sessions struct {
		Backend      *string `yaml:"backend"`
		RedisURL     *string `yaml:"redis_url"`
		Retention    *string `yaml:"retention"`
		CookieSecure *bool   `yaml:"cookie_secure"`
		BcryptCost   *int    `yaml:"bcrypt_cost"`
	} `yaml:"sessions"`

	Events struct {
		RabbitMQURL *string `yaml:"rabbitmq_url"`
		Workers     *int    `yaml:"workers"`
		Prefetch    *int    `yaml:"prefetch"`
	} `yaml:"events"`

	LLM struct {
		Provider  *string `yaml:"provider"`
		Model     *string `yaml:"model"`
		BaseURL   *string `yaml:"base_url"`
		OllamaURL *string `yaml:"ollama_url"`
	} `yaml:"llm"`

	RateLimit struct {
		RPS            *float64 `yaml:"rps"`
		Burst          *int     `yaml:"burst"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"rate_limit"`
}

// ApplyFile overlays settings from a YAML file onto c. Load applies the
// environment afterwards, so environment variables win over the file. API keys are never read from
// the file; they come from the environment only.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return c.apply(&fc)
}

func (c *Config) apply(fc *FileConfig) error {
	set(&c.Port, fc.Server.Port)
	set(&c.Debug, fc.Server.Debug)
	set(&c.LogLevel, fc.Server.LogLevel)
	set(&c.LogDir, fc.Server.LogDir)
	set(&c.Timezone, fc.Server.Timezone)
	if len(fc.Server.CORSOrigins) > 0 {
		c.CORSOrigins = fc.Server.CORSOrigins
	}

	set(&c.StoreBackend, fc.Storage.Backend)
	set(&c.SQLitePath, fc.Storage.SQLitePath)
	set(&c.MongoURI, fc.Storage.MongoURI)
	set(&c.MongoDatabase, fc.Storage.MongoDatabase)
	set(&c.DatabaseURL, fc.Storage.DatabaseURL)

	set(&c.SessionBackend, fc.Sessions.Backend)
	set(&c.RedisURL, fc.Sessions.RedisURL)
	set(&c.CookieSecure, fc.Sessions.CookieSecure)
	set(&c.BcryptCost, fc.Sessions.BcryptCost)
	if fc.Sessions.Retention != nil {
		d, err := time.ParseDuration(*fc.Sessions.Retention)
		if err != nil {
			return fmt.Errorf("sessions.retention: %w", err)
		}
		c.RedisRetention = d
	}

	set(&c.RabbitMQURL, fc.Events.RabbitMQURL)
	set(&c.WorkerCount, fc.Events.Workers)
	set(&c.WorkerPrefetch, fc.Events.Prefetch)

	set(&c.LLMProvider, fc.LLM.Provider)
	set(&c.LLMModel, fc.LLM.Model)
	set(&c.LLMBaseURL, fc.LLM.BaseURL)
	set(&c.OllamaURL, fc.LLM.OllamaURL)

	set(&c.RateLimitRPS, fc.RateLimit.RPS)
	set(&c.RateLimitBurst, fc.RateLimit.Burst)
	if len(fc.RateLimit.TrustedProxies) > 0 {
		c.TrustedProxies = fc.RateLimit.TrustedProxies
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
