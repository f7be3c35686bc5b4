package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/api"
	"github.com/fleet-console/fleet-console/internal/config"
	"github.com/fleet-console/fleet-console/internal/diagnostics"
	"github.com/fleet-console/fleet-console/internal/events"
	"github.com/fleet-console/fleet-console/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/fleet-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend
	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer kv.Close()

	// Change events
	pub, err := events.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect event publisher")
	}
	defer pub.Close()
	notifier := events.NewNotifier(pub)

	store := storage.NewStore(kv,
		storage.WithKeys(storage.Keys{
			Devices:   cfg.Storage.DevicesKey,
			Templates: cfg.Storage.TemplatesKey,
			Theme:     cfg.Storage.ThemeKey,
		}),
		storage.WithNotifier(notifier),
	)
	if err := store.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load fleet state")
	}
	log.Info().
		Int("devices", len(store.Devices())).
		Int("templates", len(store.Templates())).
		Msg("Fleet state loaded")

	// Diagnostics
	client := diagnostics.NewClient(cfg.AI)
	runner := diagnostics.NewRunner(client, cfg.AI.Timeout)
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("AI API key not configured, diagnostics requests will fail")
	}

	apiServer := api.NewRESTServer(cfg, store, runner, client)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	runner.Cancel()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	if err := notifier.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending change events were not published")
	}

	log.Info().Msg("Fleet server stopped")
}
