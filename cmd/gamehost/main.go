package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "go.uber.org/automaxprocs"

	"gamehost/internal/events"
	"gamehost/internal/monitoring"
	"gamehost/internal/server"
	"gamehost/lobby"
	"gamehost/sample"
)

func main() {
	var (
		debug = flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	)
	flag.Parse()

	cfg, err := server.LoadConfig()
	if err != nil {
		bootLogger := monitoring.NewLogger(monitoring.LoggerConfig{})
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := monitoring.NewLogger(monitoring.LoggerConfig{
		Level:  monitoring.LogLevel(cfg.LogLevel),
		Format: monitoring.LogFormat(cfg.LogFormat),
	})

	publisher, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		// The announcer is observe-only; run without it rather than fail.
		logger.Warn().Err(err).Msg("Lobby event publisher unavailable")
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lb := lobby.New(logger, publisher)

	// One sample instance at boot so the server is joinable out of the box.
	id := lb.NewInstance(ctx, uuid.Nil, sample.New)
	logger.Info().Stringer("instance_id", id).Msg("Sample instance ready")

	srv := server.New(*cfg, lb, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}
