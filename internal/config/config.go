package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendREST   = "rest"
	BackendRedis  = "redis"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8081"`

	StoreBackend    string `env:"STORE_BACKEND" envDefault:"sql"`
	DBDriver        string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DatabaseURL     string `env:"DATABASE_URL" envDefault:"data/wedding.db"`
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionDir     string        `env:"SESSION_DIR" envDefault:".wedding"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"wedding-site"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY" envDefault:"dev-signing-secret-change"`
	AdminToken     string        `env:"ADMIN_TOKEN"`

	TableCount   int    `env:"TABLE_COUNT" envDefault:"10"`
	QueueBackend string `env:"QUEUE_BACKEND" envDefault:"memory"`
	QueueKey     string `env:"QUEUE_KEY" envDefault:"wedding:login-attempts"`

	RateLimitPerMin     int      `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	AuthRateLimitPerMin int      `env:"AUTH_RATE_LIMIT_PER_MIN" envDefault:"10"`
	CORSOrigins         []string `env:"CORS_ORIGINS" envSeparator:","`

	ContentFile string `env:"CONTENT_FILE" envDefault:"content.yaml"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load returns application config populated from environment variables.
func Load() (App, error) {
	var cfg App
	if err := env.Parse(&cfg); err != nil {
		return App{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return App{}, err
	}
	return cfg, nil
}

// Production reports whether the service runs with production settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// Validate rejects combinations the service cannot start with.
func (a App) Validate() error {
	var errs []error
	switch a.StoreBackend {
	case BackendMemory, BackendREST:
	case BackendSQL:
		if a.DBDriver != "pgx" && a.DBDriver != "sqlite3" {
			errs = append(errs, fmt.Errorf("DB_DRIVER must be pgx or sqlite3, got %q", a.DBDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be memory, sql or rest, got %q", a.StoreBackend))
	}
	if a.SessionBackend != BackendMemory && a.SessionBackend != BackendRedis {
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", a.SessionBackend))
	}
	if a.QueueBackend != BackendMemory && a.QueueBackend != BackendRedis {
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND must be memory or redis, got %q", a.QueueBackend))
	}
	if a.TableCount <= 0 {
		errs = append(errs, fmt.Errorf("TABLE_COUNT must be positive, got %d", a.TableCount))
	}
	if a.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if a.Production() && a.JWTSigningKey == "dev-signing-secret-change" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	return errors.Join(errs...)
}
