// Package common provides shared utilities for Contra
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Contra
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds paths for the storage areas.
type StorageConfig struct {
	TickerFile string `toml:"ticker_file"` // CSV of company metrics, loaded once at startup
	IndexPath  string `toml:"index_path"`  // BadgerHold document index (persists across restarts)
	UploadDir  string `toml:"upload_dir"`  // Uploaded report files
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
	News   NewsConfig   `toml:"news"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	MaxRetries   int    `toml:"max_retries"`
	InitialDelay string `toml:"initial_delay"` // backoff base for rate-limit retries
}

// GetInitialDelay parses and returns the backoff base delay
func (c *GeminiConfig) GetInitialDelay() time.Duration {
	d, err := time.ParseDuration(c.InitialDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// NewsConfig holds news API configuration
type NewsConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *NewsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			TickerFile: "data/stocks.csv",
			IndexPath:  "data/index",
			UploadDir:  "data/uploads",
		},
		Clients: ClientsConfig{
			Gemini: GeminiConfig{
				Model:        "gemini-2.0-flash",
				MaxRetries:   3,
				InitialDelay: "5s",
			},
			News: NewsConfig{
				BaseURL:   "https://newsapi.org/v2",
				RateLimit: 5,
				Timeout:   "30s",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a TOML file, applying environment
// variable overrides on top. A missing file returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides lets environment variables take precedence over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CONTRA_ENV"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("CONTRA_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("CONTRA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("CONTRA_TICKER_FILE"); v != "" {
		config.Storage.TickerFile = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		config.Clients.News.APIKey = v
	}
	if v := os.Getenv("CONTRA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
