package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/api/handlers"
	"github.com/dvloznov/pfm-ledger/internal/app"
	"github.com/dvloznov/pfm-ledger/internal/config"
	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("LEDGER_CONFIG"), "Path to a YAML config file (or set LEDGER_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port, overrides server.port")
	)
	flag.Parse()

	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err = logger.NewFromConfig(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stdout)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Invalid log configuration")
	}

	if cfg.Server.APIKey == "" {
		log.Warn().Msg("No API key configured - the gateway accepts unauthenticated calls")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer a.Close()

	go a.PurgeProposals(ctx, time.Minute)

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Engine:   a.Service,
			Receipts: a.Receipts,
			APIKey:   cfg.Server.APIKey,
			Logger:   log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("backend", cfg.Storage.Backend).
			Int("records", a.Store.Len()).Msg("Starting ledger gateway")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
