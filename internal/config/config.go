package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service and the CLI.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" required:"true"`
	BackendToken   string        `envconfig:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	StatementCacheTTL time.Duration `envconfig:"STATEMENT_CACHE_TTL" default:"5m"`

	ExportProfile   string `envconfig:"EXPORT_PROFILE"`
	ExportRateLimit int    `envconfig:"EXPORT_RATE_LIMIT" default:"30"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Load reads an optional .env file and then the environment. The server requires a JWT
// secret; the CLI does not.
func Load(requireAuth bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.BackendBaseURL = strings.TrimSpace(cfg.BackendBaseURL)
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("backend base url must be provided")
	}
	if requireAuth && cfg.AuthJWTSecret == "" {
		return nil, errors.New("auth jwt secret must be provided")
	}
	if cfg.StatementCacheTTL <= 0 {
		return nil, errors.New("statement cache ttl must be positive")
	}
	if cfg.ExportRateLimit <= 0 {
		return nil, errors.New("export rate limit must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the service runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
