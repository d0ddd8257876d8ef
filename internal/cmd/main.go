package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using environment variables")
	}
	setupLogger()

	config, err := loadConfig(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	if services.Worker != nil {
		if err := services.Worker.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start activity worker")
		}
		defer services.Worker.Stop()
	}

	server := setupServer(config, services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func setupLogger() {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Timestamp().Logger()
}
