package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/stevemurr/record-gateway/config"
	"github.com/stevemurr/record-gateway/handler"
	"github.com/stevemurr/record-gateway/logging"
	"github.com/stevemurr/record-gateway/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("GATEWAY_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	// The store must be reachable before any request is accepted.
	s, err := store.New(context.Background(), cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to connect to store")
	}
	log.Info().
		Str("backend", cfg.Store.Backend).
		Str("database", cfg.Store.Database).
		Str("collection", cfg.Store.Collection).
		Msg("connected to store")

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.New(s, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := s.Close(ctx); err != nil {
		log.Error().Err(err).Msg("store close error")
	}
	log.Info().Msg("shutdown complete")
}
