package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Menu broadcast transports.
const (
	BroadcastRedis = "redis"
	BroadcastFile  = "file"
	BroadcastNone  = "none"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionSecret     string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionCookie     string        `envconfig:"SESSION_COOKIE" default:"portal_session"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionMaxEngines int           `envconfig:"SESSION_MAX_ENGINES" default:"10000"`
	SessionRevalidate time.Duration `envconfig:"SESSION_REVALIDATE" default:"1m"`

	APIBaseURL  string        `envconfig:"API_BASE_URL" required:"true"`
	APITimeout  time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	APIRetryMax int           `envconfig:"API_RETRY_MAX" default:"2"`

	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"5m"`
	IdleWarning time.Duration `envconfig:"IDLE_WARNING" default:"30s"`

	MenuTTL         time.Duration `envconfig:"MENU_TTL" default:"5m"`
	MenuBroadcast   string        `envconfig:"MENU_BROADCAST" default:"redis"`
	MenuSentinelDir string        `envconfig:"MENU_SENTINEL_DIR"`
	MenuResyncCron  string        `envconfig:"MENU_RESYNC_CRON" default:"*/30 * * * *"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.APIBaseURL == "" {
		return errors.New("api base url must be provided")
	}
	c.MenuBroadcast = strings.ToLower(strings.TrimSpace(c.MenuBroadcast))
	switch c.MenuBroadcast {
	case BroadcastRedis, BroadcastNone:
	case BroadcastFile:
		if c.MenuSentinelDir == "" {
			return errors.New("menu sentinel dir must be provided for file broadcasts")
		}
	default:
		return fmt.Errorf("unknown menu broadcast %q", c.MenuBroadcast)
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be positive")
	}
	if c.IdleWarning <= 0 || c.IdleWarning > c.IdleTimeout {
		return errors.New("idle warning must be positive and not exceed the idle timeout")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
