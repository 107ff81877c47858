package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Backend   BackendConfig
	Currency  CurrencyConfig
	Storage   StorageConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// BackendConfig points at the order backend this service fronts.
type BackendConfig struct {
	URL       string        `usage:"Order backend base URL (KART_BACKEND_URL)" flag:"backend-url"`
	Timeout   time.Duration `default:"10s" usage:"Order backend request timeout"`
	UserAgent string        `default:"storefront-kart/1.0" usage:"User agent sent to the order backend" flag:"backend-user-agent"`
	// Prefilter is an optional bloom filter file of known coupon codes;
	// codes it rules out are rejected without a backend round trip.
	Prefilter string `default:"" usage:"Path to coupon prefilter file" flag:"coupon-prefilter"`
}

// CurrencyConfig controls how amounts are rendered for display.
type CurrencyConfig struct {
	Symbol string `default:"$" usage:"Currency symbol for formatted amounts"`
	Digits int    `default:"2" usage:"Fraction digits for formatted amounts"`
}

// StorageConfig selects where cart slots persist between requests.
type StorageConfig struct {
	// Kind is one of memory, file, redis, postgres.
	Kind        string        `default:"memory" usage:"Slot storage backend: memory|file|redis|postgres" flag:"storage"`
	FileDir     string        `default:"./carts" usage:"Directory for the file backend" flag:"storage-dir"`
	RedisURL    string        `usage:"Redis URL for the redis backend (KART_STORAGE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	RedisTTL    time.Duration `default:"24h" usage:"Slot TTL for the redis backend" flag:"redis-ttl"`
	DatabaseURL string        `usage:"PostgreSQL URL for the postgres backend (KART_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// SessionConfig controls the session cookie and the in-process registry.
type SessionConfig struct {
	TTL     time.Duration `default:"0" usage:"Session cookie lifetime; 0 means browser-session"`
	Secure  bool          `default:"false" usage:"Mark the session cookie Secure" flag:"session-secure"`
	IdleTTL time.Duration `default:"30m" usage:"Evict in-process sessions untouched for this long" flag:"session-idle-ttl"`
}

// RateLimitConfig controls the per-session fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (the session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Backend.URL == "" {
		return nil, errors.New("backend URL is required: set KART_BACKEND_URL")
	}
	switch cfg.Storage.Kind {
	case "memory", "file":
	case "redis":
		if cfg.Storage.RedisURL == "" {
			return nil, errors.New("redis URL is required: set KART_STORAGE_REDIS_URL or REDIS_URL")
		}
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return nil, errors.New("database URL is required: set KART_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Kind)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if c.Storage.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Storage.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
