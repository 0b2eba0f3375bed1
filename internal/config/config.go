package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	TMDB      TMDBConfig
	OMDB      OMDBConfig
	Upstream  UpstreamConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Env    string
	Port   string
	AppURL string
}

type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
}

type OMDBConfig struct {
	APIKey  string
	BaseURL string
}

// UpstreamConfig controls the retry policy shared by both catalog clients
type UpstreamConfig struct {
	Timeout        time.Duration
	RetryAttempts  int
	TimeoutBackoff time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type RateLimitConfig struct {
	PerMinute int
}

// StorageConfig selects the backend used for the client's persisted slots
type StorageConfig struct {
	Driver string
	Path   string
}

type ClientConfig struct {
	APIURL   string
	Debounce time.Duration
}

// Load reads environment variables and returns a Config struct. Missing upstream keys are
// not an error: the affected routes answer "not configured" instead.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	timeout, err := getDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	backoff, err := getDuration("UPSTREAM_TIMEOUT_BACKOFF", time.Second)
	if err != nil {
		return nil, err
	}
	attempts, err := getInt("UPSTREAM_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	perMinute, err := getInt("RATE_LIMIT_PER_MINUTE", 0)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	debounce, err := getDuration("SEARCH_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Env:    getEnv("APP_ENV", "local"),
			Port:   getEnv("PORT", "3000"),
			AppURL: getEnv("APP_URL", "http://localhost:3000"),
		},
		TMDB: TMDBConfig{
			APIKey:       getEnv("TMDB_API_KEY", ""),
			BaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p"),
			Language:     getEnv("TMDB_LANGUAGE", "en-US"),
		},
		OMDB: OMDBConfig{
			APIKey:  getEnv("OMDB_API_KEY", ""),
			BaseURL: getEnv("OMDB_BASE_URL", "https://www.omdbapi.com"),
		},
		Upstream: UpstreamConfig{
			Timeout:        timeout,
			RetryAttempts:  attempts,
			TimeoutBackoff: backoff,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			PerMinute: perMinute,
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "file"),
			Path:   getEnv("STORAGE_PATH", ""),
		},
		Client: ClientConfig{
			APIURL:   getEnv("MOVIEFLIX_API_URL", "http://localhost:3000"),
			Debounce: debounce,
		},
	}

	if cfg.Upstream.RetryAttempts < 1 {
		return nil, fmt.Errorf("UPSTREAM_RETRY_ATTEMPTS must be at least 1")
	}
	switch cfg.Storage.Driver {
	case "file", "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be one of file, sqlite, postgres, memory")
	}
	if cfg.Storage.Driver == "postgres" && cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment returns true if running in development/local mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "local" || c.Server.Env == "development"
}

// RedisEnabled reports whether a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// RateLimitPerMinute returns the configured limit, defaulting to 100 in production and
// 1000 elsewhere
func (c *Config) RateLimitPerMinute() int {
	if c.RateLimit.PerMinute > 0 {
		return c.RateLimit.PerMinute
	}
	if c.IsProduction() {
		return 100
	}
	return 1000
}
