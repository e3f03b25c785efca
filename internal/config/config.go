package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `env:"APP_ENV" env-default:"development"`
	Port string `env:"PORT" env-default:"8080"`

	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`
	JWTSecret   string `env:"JWT_SECRET" env-required:"true"`
	SentryDSN   string `env:"SENTRY_DSN"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`

	LockThreshold int           `env:"LOCK_THRESHOLD" env-default:"5"`
	LockDuration  time.Duration `env:"LOCK_DURATION" env-default:"15m"`

	LoginRateLimitMax    int           `env:"LOGIN_RATE_LIMIT_MAX" env-default:"10"`
	LoginRateLimitWindow time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" env-default:"1m"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"10m"`

	RunMigrations bool `env:"RUN_MIGRATIONS_ON_STARTUP" env-default:"true"`

	AdminName     string `env:"ADMIN_NAME" env-default:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from the process environment. A local .env file,
// when present, is merged in first without overriding variables already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}

	return cfg, nil
}
