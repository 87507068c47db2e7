package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth for the HTTP API. Empty disables auth.
	APIKey string

	// Download behavior
	Strategy      string
	UseBrowser    bool
	MaxConcurrent int
	RequestDelay  time.Duration
	FetchTimeout  time.Duration
	MaxBodyBytes  int64

	// URL filtering
	IncludePattern  string
	ExcludePatterns string

	// Output
	OutputFile string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Run state
	RunTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("BOOKSTITCH_API_KEY"),

		Strategy:      envOr("STRATEGY", "auto"),
		UseBrowser:    envBool("USE_BROWSER", true),
		MaxConcurrent: envInt("MAX_CONCURRENT", 15),
		RequestDelay:  envDuration("REQUEST_DELAY", 100*time.Millisecond),
		FetchTimeout:  envDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxBodyBytes:  envInt64("MAX_BODY_BYTES", 10485760), // 10MB

		IncludePattern:  os.Getenv("INCLUDE_PATTERN"),
		ExcludePatterns: os.Getenv("EXCLUDE_PATTERNS"),

		OutputFile: envOr("OUTPUT_FILE", "documentation.md"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 16),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 15
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10485760
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

// fileConfig mirrors Config for the optional YAML overlay. Only fields set
// in the file override the environment.
type fileConfig struct {
	Port            string `yaml:"port"`
	APIKey          string `yaml:"api_key"`
	Strategy        string `yaml:"strategy"`
	UseBrowser      *bool  `yaml:"use_browser"`
	MaxConcurrent   int    `yaml:"max_concurrent"`
	RequestDelayMS  int    `yaml:"request_delay_ms"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	IncludePattern  string `yaml:"include"`
	ExcludePatterns string `yaml:"exclude"`
	OutputFile      string `yaml:"output"`
	WorkerCount     int    `yaml:"workers"`
}

// ApplyFile overlays settings from a YAML config file. A missing file is
// not an error.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.Strategy != "" {
		c.Strategy = fc.Strategy
	}
	if fc.UseBrowser != nil {
		c.UseBrowser = *fc.UseBrowser
	}
	if fc.MaxConcurrent > 0 {
		c.MaxConcurrent = fc.MaxConcurrent
	}
	if fc.RequestDelayMS > 0 {
		c.RequestDelay = time.Duration(fc.RequestDelayMS) * time.Millisecond
	}
	if fc.FetchTimeoutSec > 0 {
		c.FetchTimeout = time.Duration(fc.FetchTimeoutSec) * time.Second
	}
	if fc.IncludePattern != "" {
		c.IncludePattern = fc.IncludePattern
	}
	if fc.ExcludePatterns != "" {
		c.ExcludePatterns = fc.ExcludePatterns
	}
	if fc.OutputFile != "" {
		c.OutputFile = fc.OutputFile
	}
	if fc.WorkerCount > 0 {
		c.WorkerCount = fc.WorkerCount
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Strategy {
	case "auto", "github", "sitemap", "scraping", "universal", "fusion":
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.MaxConcurrent > 100 {
		return fmt.Errorf("MAX_CONCURRENT %d is too high", c.MaxConcurrent)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
