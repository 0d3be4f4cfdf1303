package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Addr        string `env:"CINDER_ADDR" envDefault:":8080"`
	TLSCert     string `env:"CINDER_TLS_CERT" envDefault:""`
	TLSKey      string `env:"CINDER_TLS_KEY" envDefault:""`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Empty means the in-memory store (single-process development mode).
	RedisURL string `env:"REDIS_URL" envDefault:""`

	RoomTTL      time.Duration `env:"CINDER_ROOM_TTL" envDefault:"600s"`
	RoomCapacity int           `env:"CINDER_ROOM_CAPACITY" envDefault:"2"`

	CreateLimit  int64         `env:"CINDER_CREATE_LIMIT" envDefault:"3"`
	CreateWindow time.Duration `env:"CINDER_CREATE_WINDOW" envDefault:"60s"`

	HandshakeRatePerIP float64       `env:"CINDER_WS_RATE_PER_IP" envDefault:"10"`
	MaxMessageSize     int64         `env:"CINDER_MAX_MESSAGE_SIZE" envDefault:"65536"`
	SweepInterval      time.Duration `env:"CINDER_SWEEP_INTERVAL" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"CINDER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if cfg.RoomTTL <= 0 {
		return nil, fmt.Errorf("CINDER_ROOM_TTL must be positive")
	}
	if cfg.RoomCapacity < 1 {
		return nil, fmt.Errorf("CINDER_ROOM_CAPACITY must be at least 1")
	}
	if cfg.CreateLimit < 1 {
		return nil, fmt.Errorf("CINDER_CREATE_LIMIT must be at least 1")
	}
	if cfg.CreateWindow <= 0 {
		return nil, fmt.Errorf("CINDER_CREATE_WINDOW must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("CINDER_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}
