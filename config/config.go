// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"16"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"true"`
	// Auth
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	// Hire
	HireLockTimeout time.Duration `envconfig:"HIRE_LOCK_TIMEOUT" default:"5s"`
	// Notifications
	RabbitURL          string        `envconfig:"RABBIT_URL"`
	NotifyExchange     string        `envconfig:"NOTIFY_EXCHANGE" default:"gigflow.events"`
	NotifyRelayTimeout time.Duration `envconfig:"NOTIFY_RELAY_TIMEOUT" default:"2s"`
	// Network
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":5000"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file from the working directory and then
// processes the environment into App.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("config: load .env: %w", err)
	}

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c App) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
