// Package config loads service settings from the environment. A local .env
// file is honored when present; real deployments set variables directly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DatabaseURL string        `env:"DATABASE_URL"` // empty = in-memory store
	Env         string        `env:"APP_ENV" envDefault:"development"`
	Settle      time.Duration `env:"SETTLE_WINDOW" envDefault:"1500ms"`
	FaceUpLimit int           `env:"FACE_UP_LIMIT" envDefault:"2"`
	DemoPool    int           `env:"DEMO_POOL_SIZE" envDefault:"40"` // in-memory mode only
	Shutdown    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // optional

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Settle < 0 {
		return Config{}, fmt.Errorf("SETTLE_WINDOW must not be negative")
	}
	if cfg.FaceUpLimit < 1 {
		return Config{}, fmt.Errorf("FACE_UP_LIMIT must be at least 1")
	}
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }
