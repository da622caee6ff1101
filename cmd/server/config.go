package main

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

const (
	backendMemory = "memory"
	backendBuntdb = "buntdb"
	backendRedis  = "redis"
)

type config struct {
	Debug            bool   `env:"DEBUG" envDefault:"false"`
	Syslog           bool   `env:"SYSLOG" envDefault:"false"`
	Addr             string `env:"KIOSK_ADDR" envDefault:"127.0.0.1:8000"`
	FrontendDir      string `env:"FRONTEND_DIR" envDefault:"./frontend"`
	CorsAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`

	SessionBackend string `env:"SESSION_BACKEND" envDefault:"memory"`
	BuntdbPath     string `env:"BUNTDB_PATH" envDefault:":memory:"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// Enables the postgres activity log, in-memory log otherwise.
	PostgresDsn string `env:"POSTGRES_DSN"`
}

func loadConfig(opts env.Options) (config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.SessionBackend {
	case backendMemory, backendBuntdb, backendRedis:
	default:
		return config{}, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	return cfg, nil
}
