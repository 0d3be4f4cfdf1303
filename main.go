package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store Store
	if cfg.RedisURL != "" {
		rs, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis store init failed")
		}
		store = rs
		log.Info().Msg("using redis store")
	} else {
		store = NewMemStore()
		log.Warn().Msg("REDIS_URL not set, using in-memory store (single process only)")
	}
	defer store.Close()

	registry := NewRegistry(store, cfg.RoomTTL, cfg.RoomCapacity)
	admission := NewAdmission(registry, log)
	hub := NewHub(cfg, registry, log)
	srv := NewServer(cfg, hub, registry, admission, store, log)

	go hub.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info().Msg("shutting down...")
		cancel()
		srv.Shutdown()
	}()

	log.Info().Str("addr", cfg.Addr).Msg("cinder starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
