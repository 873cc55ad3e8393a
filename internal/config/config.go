package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath        string        `env:"DB_PATH" envDefault:"data/races.db"`
	LogLevel      slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:"replay-admin"`
	TickInterval  time.Duration `env:"TICK_INTERVAL" envDefault:"250ms"`
	SeedDemo      bool          `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return &cfg, nil
}
