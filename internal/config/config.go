package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Fetch modes
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Empty disables the shared cache and the refresh queue
	RedisURL string `envconfig:"REDIS_URL"`

	FetchMode         string        `envconfig:"FETCH_MODE" default:"http"`
	FetchUserAgent    string        `envconfig:"FETCH_USER_AGENT"`
	FetchMaxBodyBytes int64         `envconfig:"FETCH_MAX_BODY_BYTES" default:"5242880"`
	ExtractTimeout    time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"20s"`
	ExtractRatePerMin int           `envconfig:"EXTRACT_RATE_PER_MIN" default:"30"`
	CacheTTL          time.Duration `envconfig:"CACHE_TTL" default:"6h"`
	CacheSize         int           `envconfig:"CACHE_SIZE" default:"512"`

	AdminUsername     string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string        `envconfig:"SESSION_SECRET"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	CookieSecure      bool          `envconfig:"COOKIE_SECURE" default:"false"`
	AllowedOrigins    []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Username whose storefront is public; defaults to AdminUsername
	ShopOwner string `envconfig:"SHOP_OWNER"`

	MediaDir     string `envconfig:"MEDIA_DIR" default:"./media"`
	MediaBaseURL string `envconfig:"MEDIA_BASE_URL" default:"/media"`

	RefreshInterval    time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	RefreshBatch       int           `envconfig:"REFRESH_BATCH" default:"50"`
	RefreshParallelism int           `envconfig:"REFRESH_PARALLELISM" default:"2"`
}

// Load reads .env, the environment and then command line flags, in increasing
// precedence. Binaries register their own flags on flag.CommandLine first.
func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Command line flags override environment
	fs.StringVar(&config.Port, "port", config.Port, "Server port")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	fs.StringVar(&config.DatabaseURL, "db", config.DatabaseURL, "Database URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if config.ShopOwner == "" {
		config.ShopOwner = config.AdminUsername
	}
	config.MediaBaseURL = strings.TrimRight(config.MediaBaseURL, "/")

	return config, nil
}

// Validate checks the settings every binary needs
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.FetchMode != FetchModeHTTP && c.FetchMode != FetchModeBrowser {
		errs = append(errs, fmt.Errorf("FETCH_MODE must be %q or %q, got %q", FetchModeHTTP, FetchModeBrowser, c.FetchMode))
	}
	if c.FetchMaxBodyBytes <= 0 {
		errs = append(errs, errors.New("FETCH_MAX_BODY_BYTES must be positive"))
	}
	if c.ExtractTimeout <= 0 {
		errs = append(errs, errors.New("EXTRACT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateForAPI ensures all required fields for API service are present
func (c *Config) ValidateForAPI() error {
	errs := []error{c.Validate()}
	if c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required (generate one with dbutil -hash-password)"))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.ExtractRatePerMin <= 0 {
		errs = append(errs, errors.New("EXTRACT_RATE_PER_MIN must be positive"))
	}
	if !strings.HasPrefix(c.MediaBaseURL, "/") && !strings.HasPrefix(c.MediaBaseURL, "http") {
		errs = append(errs, errors.New("MEDIA_BASE_URL must be a path or an absolute URL"))
	}
	return errors.Join(errs...)
}

// ValidateForWorker ensures all required fields for worker service are present
func (c *Config) ValidateForWorker() error {
	errs := []error{c.Validate()}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the refresh worker"))
	}
	if c.RefreshBatch <= 0 || c.RefreshParallelism <= 0 {
		errs = append(errs, errors.New("REFRESH_BATCH and REFRESH_PARALLELISM must be positive"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
