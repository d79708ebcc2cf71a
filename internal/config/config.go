package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client application
type Config struct {
	Client     ClientConfig
	API        APIConfig
	Cloudinary CloudinaryConfig
	Cache      CacheConfig
	Logging    LoggingConfig
}

// ClientConfig holds application-level configuration
type ClientConfig struct {
	Environment string
	// TokenPath is where the session token is persisted between runs.
	TokenPath string
	// FeedLimit is the batch size requested for the home feed.
	FeedLimit int
	// FeedOrderBy is the default trending metric (views, likes, comments).
	FeedOrderBy string
	// SwipeThreshold is the minimum vertical distance, in logical pixels,
	// that distinguishes a swipe from a tap.
	SwipeThreshold float64
}

// APIConfig holds backend connection configuration
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	// MaxRetries bounds the retry attempts for best-effort stat increments.
	MaxRetries uint64
	RetryBase  time.Duration
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	MaxFileSize  int64
	// RootFolder prefixes every per-user upload folder.
	RootFolder string
}

// CacheConfig holds feed cache configuration
type CacheConfig struct {
	Provider        string // "memory" or "redis"
	TTL             time.Duration
	MaxKeys         int
	CleanupInterval time.Duration
	RedisURL        string
	RedisDB         int
	RedisPassword   string
	PoolSize        int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with validation
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Client:     loadClientConfig(env),
		API:        loadAPIConfig(),
		Cloudinary: loadCloudinaryConfig(),
		Cache:      loadCacheConfig(env),
		Logging:    loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadClientConfig(env string) ClientConfig {
	return ClientConfig{
		Environment:    env,
		TokenPath:      getEnv("CHALLZ_TOKEN_PATH", defaultTokenPath()),
		FeedLimit:      getIntEnv("CHALLZ_FEED_LIMIT", 10),
		FeedOrderBy:    getEnv("CHALLZ_FEED_ORDER_BY", "views"),
		SwipeThreshold: getFloat64Env("CHALLZ_SWIPE_THRESHOLD", 50),
	}
}

func loadAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:        getEnv("CHALLZ_API_URL", "http://localhost:4000"),
		RequestTimeout: getDurationEnv("CHALLZ_API_TIMEOUT", 15*time.Second),
		UploadTimeout:  getDurationEnv("CHALLZ_UPLOAD_TIMEOUT", 2*time.Minute),
		MaxRetries:     uint64(getIntEnv("CHALLZ_API_MAX_RETRIES", 3)),
		RetryBase:      getDurationEnv("CHALLZ_API_RETRY_BASE", 500*time.Millisecond),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	return CloudinaryConfig{
		CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),
		MaxFileSize:  getInt64Env("CLOUDINARY_MAX_FILE_SIZE", 100*1024*1024), // 100MB
		RootFolder:   getEnv("CLOUDINARY_ROOT_FOLDER", "challz"),
	}
}

func loadCacheConfig(env string) CacheConfig {
	var defaultTTL time.Duration
	switch env {
	case "production":
		defaultTTL = 5 * time.Minute
	default:
		defaultTTL = time.Minute
	}

	return CacheConfig{
		Provider:        getEnv("CACHE_PROVIDER", "memory"),
		TTL:             getDurationEnv("CACHE_TTL", defaultTTL),
		MaxKeys:         getIntEnv("CACHE_MAX_KEYS", 1000),
		CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		PoolSize:        getIntEnv("REDIS_POOL_SIZE", 10),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	// Uploads only work with a fully configured Cloudinary account, but the
	// feed must stay usable without one.
	if c.Cloudinary.Configured() {
		if err := c.Cloudinary.Validate(); err != nil {
			return fmt.Errorf("cloudinary config: %w", err)
		}
	}

	return nil
}

// Validate validates API configuration
func (a *APIConfig) Validate() error {
	if a.BaseURL == "" {
		return fmt.Errorf("CHALLZ_API_URL is required")
	}

	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CHALLZ_API_URL must be an absolute URL, got %q", a.BaseURL)
	}

	if a.RequestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout must be positive")
	}

	return nil
}

// Validate validates client configuration
func (c *ClientConfig) Validate() error {
	if c.FeedLimit <= 0 {
		return fmt.Errorf("FeedLimit must be positive")
	}

	switch c.FeedOrderBy {
	case "views", "likes", "comments":
	default:
		return fmt.Errorf("FeedOrderBy must be one of views, likes, comments; got %q", c.FeedOrderBy)
	}

	if c.SwipeThreshold <= 0 {
		return fmt.Errorf("SwipeThreshold must be positive")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "memory", "":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_PROVIDER=redis")
		}
	default:
		return fmt.Errorf("unsupported cache provider: %s", c.Provider)
	}

	if c.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	return nil
}

// Configured reports whether enough Cloudinary settings are present for
// uploads to be attempted at all.
func (c *CloudinaryConfig) Configured() bool {
	return c.CloudName != ""
}

// Validate validates Cloudinary configuration
func (c *CloudinaryConfig) Validate() error {
	if c.CloudName == "" {
		return fmt.Errorf("CLOUDINARY_CLOUD_NAME is required")
	}

	if c.UploadPreset == "" && (c.APIKey == "" || c.APISecret == "") {
		return fmt.Errorf("either CLOUDINARY_UPLOAD_PRESET or CLOUDINARY_API_KEY/CLOUDINARY_API_SECRET must be set")
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("CLOUDINARY_MAX_FILE_SIZE must be positive")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Client.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Client.Environment == "development"
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".challz_token"
	}
	return filepath.Join(home, ".challz", "token")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
