package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PoolConfig bounds a Pool.
type PoolConfig struct {
	MaxConnections int           `yaml:"max_connections"` // Concurrent generator calls, default 20
	CacheSize      int           `yaml:"cache_size"`      // Cached responses, 0 disables the cache; default 1000
	CacheTTL       time.Duration `yaml:"cache_ttl"`       // Default: 1 hour
	RateLimit      int           `yaml:"rate_limit"`      // Admissions per RateWindow, 0 = disabled; default 60
	RateWindow     time.Duration `yaml:"rate_window"`     // Default: 1 minute
	MaxRetries     int           `yaml:"max_retries"`     // Attempts per call, default 3
	RetryUnit      time.Duration `yaml:"retry_unit"`      // Backoff is 2^attempt units, default 1s
	RequestTimeout time.Duration `yaml:"request_timeout"` // Per attempt, 0 = none; default 60s

	DefaultModel     string `yaml:"default_model"`      // Empty leaves the generator's own model
	DefaultMaxTokens int    `yaml:"default_max_tokens"` // Default: 3000
}

// DefaultPoolConfig returns the configuration used when nothing is overridden.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:   20,
		CacheSize:        1000,
		CacheTTL:         time.Hour,
		RateLimit:        60,
		RateWindow:       time.Minute,
		MaxRetries:       3,
		RetryUnit:        time.Second,
		RequestTimeout:   60 * time.Second,
		DefaultMaxTokens: 3000,
	}
}

// NewPoolConfigFromEnv creates config from environment variables with sensible defaults
func NewPoolConfigFromEnv() (PoolConfig, error) {
	def := DefaultPoolConfig()
	config := PoolConfig{
		MaxConnections:   getEnvIntOrDefault("LLM_POOL_MAX_CONNECTIONS", def.MaxConnections),
		CacheSize:        getEnvIntOrDefault("LLM_POOL_CACHE_SIZE", def.CacheSize),
		CacheTTL:         time.Duration(getEnvIntOrDefault("LLM_POOL_CACHE_TTL_SECONDS", int(def.CacheTTL/time.Second))) * time.Second,
		RateLimit:        getEnvIntOrDefault("LLM_POOL_RATE_LIMIT", def.RateLimit),
		RateWindow:       time.Duration(getEnvIntOrDefault("LLM_POOL_RATE_WINDOW_SECONDS", int(def.RateWindow/time.Second))) * time.Second,
		MaxRetries:       getEnvIntOrDefault("LLM_POOL_MAX_RETRIES", def.MaxRetries),
		RetryUnit:        time.Duration(getEnvIntOrDefault("LLM_POOL_RETRY_UNIT_MS", int(def.RetryUnit/time.Millisecond))) * time.Millisecond,
		RequestTimeout:   time.Duration(getEnvIntOrDefault("LLM_POOL_REQUEST_TIMEOUT_SECONDS", int(def.RequestTimeout/time.Second))) * time.Second,
		DefaultModel:     getEnvOrDefault("LLM_POOL_DEFAULT_MODEL", def.DefaultModel),
		DefaultMaxTokens: getEnvIntOrDefault("LLM_POOL_DEFAULT_MAX_TOKENS", def.DefaultMaxTokens),
	}

	if err := config.Validate(); err != nil {
		return PoolConfig{}, err
	}
	return config, nil
}

// LoadPoolConfig reads a YAML file. Keys missing from the file keep their defaults.
func LoadPoolConfig(path string) (PoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PoolConfig{}, fmt.Errorf("failed to read pool config: %w", err)
	}

	config := DefaultPoolConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return PoolConfig{}, fmt.Errorf("failed to parse pool config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return PoolConfig{}, err
	}
	return config, nil
}

// Validate checks if the configuration is valid and complete
func (c PoolConfig) Validate() error {
	if c.MaxConnections < 1 {
		return fmt.Errorf("maxConnections must be at least 1, got %d", c.MaxConnections)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("cacheSize cannot be negative, got %d", c.CacheSize)
	}

	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cacheTTL must be positive when caching is enabled, got %v", c.CacheTTL)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit cannot be negative, got %d", c.RateLimit)
	}

	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return fmt.Errorf("rateWindow must be positive when rate limiting is enabled, got %v", c.RateWindow)
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("maxRetries must be at least 1, got %d", c.MaxRetries)
	}

	if c.RetryUnit < 0 {
		return fmt.Errorf("retryUnit cannot be negative, got %v", c.RetryUnit)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout cannot be negative, got %v", c.RequestTimeout)
	}

	if c.DefaultMaxTokens < 0 {
		return fmt.Errorf("defaultMaxTokens cannot be negative, got %d", c.DefaultMaxTokens)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as int or default if not set/invalid
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
