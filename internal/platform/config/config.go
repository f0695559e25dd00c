package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Addr           string `yaml:"addr" env:"APP_ADDR" env-default:":8080"`
	Environment    string `yaml:"environment" env:"APP_ENV" env-default:"development"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	JWTSecret      string `yaml:"jwt_secret" env:"JWT_SECRET"`
	RunMigrations  bool   `yaml:"run_migrations" env:"RUN_MIGRATIONS" env-default:"true"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes" env:"MAX_BODY_BYTES" env-default:"1048576"`
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`

	Log    LogConfig    `yaml:"log"`
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	Notify NotifyConfig `yaml:"notify"`
	Jobs   JobsConfig   `yaml:"jobs"`
	Assign AssignConfig `yaml:"assign"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type DBConfig struct {
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NotifyConfig struct {
	// Backend is "outbox" (postgres table) or "redis" (stream).
	Backend string `yaml:"backend" env:"NOTIFY_BACKEND" env-default:"outbox"`
	Stream  string `yaml:"stream" env:"NOTIFY_STREAM" env-default:"evaluation:notifications"`
}

type JobsConfig struct {
	QueueSize            int           `yaml:"queue_size" env:"JOB_QUEUE_SIZE" env-default:"128"`
	OverdueSweepInterval time.Duration `yaml:"overdue_sweep_interval" env:"OVERDUE_SWEEP_INTERVAL" env-default:"1h"`
}

type AssignConfig struct {
	Timeout        time.Duration `yaml:"timeout" env:"AUTO_ASSIGN_TIMEOUT" env-default:"2m"`
	DefaultDueDays int           `yaml:"default_due_days" env:"DEFAULT_DUE_DAYS" env-default:"14"`
}

// Load reads CONFIG_PATH when set, otherwise the environment only.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	switch c.Notify.Backend {
	case "outbox":
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("REDIS_ADDR must be set when NOTIFY_BACKEND is redis")
		}
	default:
		return fmt.Errorf("NOTIFY_BACKEND must be outbox or redis")
	}
	if c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.Assign.DefaultDueDays <= 0 {
		return fmt.Errorf("DEFAULT_DUE_DAYS must be positive")
	}
	return nil
}
