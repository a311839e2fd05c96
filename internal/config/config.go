// Package config holds the runtime configuration and the declarative
// per-source field mapping loaded from sources.yaml.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the runtime settings for a run.
type Config struct {
	// SourcesFile is the path of the field mapping config.
	SourcesFile string

	// HTTPTimeout bounds each source API request.
	HTTPTimeout time.Duration

	DB DBConfig
}

// DBConfig describes the destination PostgreSQL database.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DefaultConfig builds the runtime config from defaults, a local .env file
// and environment variable overrides.
func DefaultConfig() *Config {
	cfg := &Config{
		SourcesFile: "config/sources.yaml",
		HTTPTimeout: 30 * time.Second,
		DB: DBConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "crypto",
			SSLMode: "disable",
		},
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("CRYPTOHIST_SOURCES"); val != "" {
		c.SourcesFile = val
	}
	if val := os.Getenv("CRYPTOHIST_HTTP_TIMEOUT"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			c.HTTPTimeout = time.Duration(secs) * time.Second
		}
	}
	if val := os.Getenv("CRYPTOHIST_DB_HOST"); val != "" {
		c.DB.Host = val
	}
	if val := os.Getenv("CRYPTOHIST_DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.DB.Port = port
		}
	}
	if val := os.Getenv("CRYPTOHIST_DB_USER"); val != "" {
		c.DB.User = val
	}
	if val := os.Getenv("CRYPTOHIST_DB_PASSWORD"); val != "" {
		c.DB.Password = val
	}
	if val := os.Getenv("CRYPTOHIST_DB_NAME"); val != "" {
		c.DB.Name = val
	}
	if val := os.Getenv("CRYPTOHIST_DB_SSLMODE"); val != "" {
		c.DB.SSLMode = val
	}
}
