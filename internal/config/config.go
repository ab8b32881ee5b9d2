package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// Auth service (the backend that owns sessions)
	AuthAPIURL     string
	AuthAPITimeout time.Duration
	AuthMaxRetries int
	AuthRetryDelay time.Duration
	AuthMaxDelay   time.Duration

	// Session cookie issued by the auth service. The gateway only checks
	// presence; the value is opaque and the server is sole authority on
	// validity.
	SessionCookieName string

	// Login routes
	LoginPath      string
	AdminLoginPath string

	// Session settings for the gateway's own flash-message cookie
	SessionSecret string
	IsProduction  bool

	// Guarded upstreams
	MonitorUpstream string
	AdminUpstream   string

	// Login rate limiting
	LoginRateLimitEnabled bool
	LoginRequestsPerMin   int
	RateLimitStore        string // "memory" or "redis"
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),

		AuthAPIURL:     getEnv("AUTH_API_URL", "http://auth/auth/api"),
		AuthAPITimeout: getEnvDuration("AUTH_API_TIMEOUT", 10*time.Second),
		AuthMaxRetries: getEnvInt("AUTH_API_MAX_RETRIES", 0),
		AuthRetryDelay: getEnvDuration("AUTH_API_RETRY_DELAY", 1*time.Second),
		AuthMaxDelay:   getEnvDuration("AUTH_API_MAX_RETRY_DELAY", 10*time.Second),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "crowsnest-auth-access"),

		LoginPath:      getEnv("LOGIN_PATH", "/login"),
		AdminLoginPath: getEnv("ADMIN_LOGIN_PATH", "/admin/login"),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		IsProduction:  getEnvBool("PRODUCTION", false),

		MonitorUpstream: getEnv("MONITOR_UPSTREAM", "http://monitor"),
		AdminUpstream:   getEnv("ADMIN_UPSTREAM", "http://admin"),

		LoginRateLimitEnabled: getEnvBool("LOGIN_RATE_LIMIT_ENABLED", true),
		LoginRequestsPerMin:   getEnvInt("LOGIN_REQUESTS_PER_MINUTE", 30),
		RateLimitStore:        getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks that the configuration is internally consistent enough to
// start the server with.
func (c *Config) Validate() error {
	if c.AuthAPIURL == "" {
		return fmt.Errorf("AUTH_API_URL must be set")
	}
	if u, err := url.Parse(c.AuthAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AUTH_API_URL must be an absolute URL, got %q", c.AuthAPIURL)
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("LOGIN_PATH must be an absolute path, got %q", c.LoginPath)
	}
	if !strings.HasPrefix(c.AdminLoginPath, "/") {
		return fmt.Errorf("ADMIN_LOGIN_PATH must be an absolute path, got %q", c.AdminLoginPath)
	}
	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		return fmt.Errorf("RATE_LIMIT_STORE must be %q or %q, got %q",
			RateLimitStoreMemory, RateLimitStoreRedis, c.RateLimitStore)
	}
	if c.RateLimitStore == RateLimitStoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set when RATE_LIMIT_STORE=redis")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
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
