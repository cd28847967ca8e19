package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, LogLevel string }

type APICfg struct {
	BaseURL      string
	Token        string
	TimeoutSec   int
	MaxRetries   int
	RetryInitial time.Duration
}

type DBCfg struct{ DSN string }

type RedisCfg struct {
	Addr string
	TTL  time.Duration
}

type SessionCfg struct{ TTL time.Duration }

type SyncCfg struct {
	Every       time.Duration
	BatchSize   int
	MaxPages    int
	Concurrency int
}

type SecurityCfg struct {
	RateLimitPerMin int
	AdminToken      string // guards the admin sync endpoint
}

type Cfg struct {
	App     AppCfg
	API     APICfg
	DB      DBCfg
	Redis   RedisCfg
	Session SessionCfg
	Sync    SyncCfg
	Sec     SecurityCfg
}

// ErrMissingSetting is returned by Validate for unset required settings.
var ErrMissingSetting = errors.New("missing required setting")

// Load reads .env (if present) and the process environment. It exits on invalid
// configuration; use Read in code that must handle the error.
func Load() Cfg {
	cfg, err := Read(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// Read loads the given dotenv files into the process environment and builds the
// configuration from it.
func Read(dotenv ...string) (Cfg, error) {
	// 1) Load .env into process env (if file exists); real env vars win
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Cfg{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// 2) Read from env via viper
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GO_API_TIMEOUT_SEC", 30)
	v.SetDefault("GO_API_MAX_RETRIES", 3)
	v.SetDefault("GO_API_RETRY_INITIAL", "500ms")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SYNC_EVERY", "15m")
	v.SetDefault("SYNC_BATCH_SIZE", 100)
	v.SetDefault("SYNC_MAX_PAGES", 50)
	v.SetDefault("SYNC_CONCURRENCY", 2)
	v.SetDefault("RATE_LIMIT_PER_MIN", 300)
	v.SetDefault("ADMIN_TOKEN", "")

	cfg := Cfg{
		App: AppCfg{
			Env:      v.GetString("APP_ENV"),
			Port:     v.GetString("APP_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		API: APICfg{
			BaseURL:      strings.TrimSpace(v.GetString("GO_API_BASE_URL")),
			Token:        strings.TrimSpace(v.GetString("GO_API_TOKEN")),
			TimeoutSec:   v.GetInt("GO_API_TIMEOUT_SEC"),
			MaxRetries:   v.GetInt("GO_API_MAX_RETRIES"),
			RetryInitial: v.GetDuration("GO_API_RETRY_INITIAL"),
		},
		DB: DBCfg{DSN: v.GetString("DB_DSN")},
		Redis: RedisCfg{
			Addr: v.GetString("REDIS_ADDR"),
			TTL:  v.GetDuration("CACHE_TTL"),
		},
		Session: SessionCfg{TTL: v.GetDuration("SESSION_TTL")},
		Sync: SyncCfg{
			Every:       v.GetDuration("SYNC_EVERY"),
			BatchSize:   v.GetInt("SYNC_BATCH_SIZE"),
			MaxPages:    v.GetInt("SYNC_MAX_PAGES"),
			Concurrency: v.GetInt("SYNC_CONCURRENCY"),
		},
		Sec: SecurityCfg{
			RateLimitPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
			AdminToken:      strings.TrimSpace(v.GetString("ADMIN_TOKEN")),
		},
	}

	// 3) Fail fast on required settings
	if err := cfg.Validate(); err != nil {
		return Cfg{}, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c Cfg) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%w: GO_API_BASE_URL", ErrMissingSetting))
	} else if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("GO_API_BASE_URL must be an http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, errors.New("GO_API_MAX_RETRIES cannot be negative"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// MirrorEnabled reports whether a Postgres mirror is configured.
func (c Cfg) MirrorEnabled() bool { return strings.TrimSpace(c.DB.DSN) != "" }

// CacheEnabled reports whether a Redis cache is configured.
func (c Cfg) CacheEnabled() bool { return strings.TrimSpace(c.Redis.Addr) != "" && c.Redis.TTL > 0 }

// SetupLogging configures the global zerolog logger for the environment.
func SetupLogging(app AppCfg) {
	level, err := zerolog.ParseLevel(strings.ToLower(app.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if app.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
