// Package config builds the explicit configuration value shared by the API
// server and the scrape job. Values come from defaults, then an optional
// YAML file, then environment variables; binaries may still override
// individual fields from flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Fixed identity of the scrape source. The snapshot record and every
// refresh are tied to this one listing.
const (
	SourceURL              = "https://www.amazon.com.br/bestsellers"
	CategoryPrefix         = "Mais Vendidos em "
	MaxProductsPerCategory = 3
)

// ServerConfig configures the HTTP API binary.
type ServerConfig struct {
	Addr            string
	APIKey          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CacheSize       int
	CacheTTL        time.Duration
}

// MongoConfig configures the snapshot document store.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// ScraperConfig configures the scrape job and its refresh publisher.
type ScraperConfig struct {
	SourceURL       string
	CategoryPrefix  string
	MaxPerCategory  int
	UserAgent       string
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	RefreshURL      string
	APIKey          string
	Interval        time.Duration
}

// Config is the full configuration value.
type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Scraper ScraperConfig
	Verbose bool
}

// DefaultConfig returns conservative defaults for a local deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			CacheSize:       64,
			CacheTTL:        30 * time.Second,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "bestsellers",
			Collection:     "snapshots",
			ConnectTimeout: 10 * time.Second,
			OpTimeout:      5 * time.Second,
		},
		Scraper: ScraperConfig{
			SourceURL:       SourceURL,
			CategoryPrefix:  CategoryPrefix,
			MaxPerCategory:  MaxProductsPerCategory,
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			Timeout:         45 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
			RetryBackoffMax: 5 * time.Second,
			RefreshURL:      "http://localhost:8080/refresh",
		},
	}
}

// fileConfig is the YAML schema. Durations are plain seconds or
// milliseconds so the file stays trivially editable.
type fileConfig struct {
	Server struct {
		Addr        string `yaml:"addr"`
		APIKey      string `yaml:"api_key"`
		CacheSize   int    `yaml:"cache_size"`
		CacheTTLSec int    `yaml:"cache_ttl_sec"`
	} `yaml:"server"`
	Mongo struct {
		URI               string `yaml:"uri"`
		Database          string `yaml:"database"`
		Collection        string `yaml:"collection"`
		ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
		OpTimeoutSec      int    `yaml:"op_timeout_sec"`
	} `yaml:"mongo"`
	Scraper struct {
		SourceURL      string `yaml:"source_url"`
		CategoryPrefix string `yaml:"category_prefix"`
		MaxPerCategory int    `yaml:"max_per_category"`
		UserAgent      string `yaml:"user_agent"`
		TimeoutSec     int    `yaml:"timeout_sec"`
		MaxRetries     *int   `yaml:"max_retries"`
		BackoffMS      int    `yaml:"retry_backoff_ms"`
		BackoffMaxMS   int    `yaml:"retry_backoff_max_ms"`
		RefreshURL     string `yaml:"refresh_url"`
		APIKey         string `yaml:"api_key"`
		IntervalSec    int    `yaml:"interval_sec"`
	} `yaml:"scraper"`
}

// Load builds a Config from defaults, the optional YAML file at path, and
// environment variables, in that order. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		cfg.applyFile(&fc)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) {
	if fc.Server.Addr != "" {
		c.Server.Addr = fc.Server.Addr
	}
	if fc.Server.APIKey != "" {
		c.Server.APIKey = fc.Server.APIKey
	}
	if fc.Server.CacheSize > 0 {
		c.Server.CacheSize = fc.Server.CacheSize
	}
	if fc.Server.CacheTTLSec > 0 {
		c.Server.CacheTTL = time.Duration(fc.Server.CacheTTLSec) * time.Second
	}

	if fc.Mongo.URI != "" {
		c.Mongo.URI = fc.Mongo.URI
	}
	if fc.Mongo.Database != "" {
		c.Mongo.Database = fc.Mongo.Database
	}
	if fc.Mongo.Collection != "" {
		c.Mongo.Collection = fc.Mongo.Collection
	}
	if fc.Mongo.ConnectTimeoutSec > 0 {
		c.Mongo.ConnectTimeout = time.Duration(fc.Mongo.ConnectTimeoutSec) * time.Second
	}
	if fc.Mongo.OpTimeoutSec > 0 {
		c.Mongo.OpTimeout = time.Duration(fc.Mongo.OpTimeoutSec) * time.Second
	}

	if fc.Scraper.SourceURL != "" {
		c.Scraper.SourceURL = fc.Scraper.SourceURL
	}
	if fc.Scraper.CategoryPrefix != "" {
		c.Scraper.CategoryPrefix = fc.Scraper.CategoryPrefix
	}
	if fc.Scraper.MaxPerCategory > 0 {
		c.Scraper.MaxPerCategory = fc.Scraper.MaxPerCategory
	}
	if fc.Scraper.UserAgent != "" {
		c.Scraper.UserAgent = fc.Scraper.UserAgent
	}
	if fc.Scraper.TimeoutSec > 0 {
		c.Scraper.Timeout = time.Duration(fc.Scraper.TimeoutSec) * time.Second
	}
	if fc.Scraper.MaxRetries != nil && *fc.Scraper.MaxRetries >= 0 {
		c.Scraper.MaxRetries = *fc.Scraper.MaxRetries
	}
	if fc.Scraper.BackoffMS > 0 {
		c.Scraper.RetryBackoff = time.Duration(fc.Scraper.BackoffMS) * time.Millisecond
	}
	if fc.Scraper.BackoffMaxMS > 0 {
		c.Scraper.RetryBackoffMax = time.Duration(fc.Scraper.BackoffMaxMS) * time.Millisecond
	}
	if fc.Scraper.RefreshURL != "" {
		c.Scraper.RefreshURL = fc.Scraper.RefreshURL
	}
	if fc.Scraper.APIKey != "" {
		c.Scraper.APIKey = fc.Scraper.APIKey
	}
	if fc.Scraper.IntervalSec > 0 {
		c.Scraper.Interval = time.Duration(fc.Scraper.IntervalSec) * time.Second
	}
}

func (c *Config) applyEnv() error {
	if value, ok := EnvString("BESTSELLERS_ADDR"); ok {
		c.Server.Addr = value
	}
	if value, ok := EnvString("BESTSELLERS_API_KEY"); ok {
		c.Server.APIKey = value
		c.Scraper.APIKey = value
	}
	if value, ok := EnvString("BESTSELLERS_MONGO_URI"); ok {
		c.Mongo.URI = value
	}
	if value, ok := EnvString("BESTSELLERS_MONGO_DB"); ok {
		c.Mongo.Database = value
	}
	if value, ok := EnvString("BESTSELLERS_REFRESH_URL"); ok {
		c.Scraper.RefreshURL = value
	}
	if value, ok, err := EnvInt("BESTSELLERS_MAX_PER_CATEGORY"); err != nil {
		return fmt.Errorf("invalid BESTSELLERS_MAX_PER_CATEGORY: %w", err)
	} else if ok {
		c.Scraper.MaxPerCategory = value
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.Server.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.Server.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo uri cannot be empty")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo database cannot be empty")
	}
	if c.Mongo.Collection == "" {
		return fmt.Errorf("mongo collection cannot be empty")
	}

	parsed, err := url.Parse(c.Scraper.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("source URL must include a host")
	}
	if c.Scraper.MaxPerCategory <= 0 {
		return fmt.Errorf("max products per category must be positive")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scrape timeout must be positive")
	}
	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Scraper.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.Scraper.RetryBackoffMax > 0 && c.Scraper.RetryBackoff > c.Scraper.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.Scraper.RetryBackoff, c.Scraper.RetryBackoffMax)
	}
	if c.Scraper.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString reads a non-empty environment variable.
func EnvString(key string) (string, bool) {
	value := os.Getenv(key)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable. The second result reports
// whether the variable was set.
func EnvInt(key string) (int, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return parsed, true, nil
}
