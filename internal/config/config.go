package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:3000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	LocatorURI     string        `env:"LOCATOR_URI" envDefault:"none://"`
	LocateTimeout  time.Duration `env:"LOCATE_TIMEOUT" envDefault:"5s"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir         string        `env:"SPA_DIR" envDefault:"../web/dist"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL must not be empty")
	}
	if cfg.RequestTimeout <= 0 || cfg.LocateTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}
	return &cfg, nil
}
