package main

import (
	"EventRelay/internal/adapters/eventbus"
	"EventRelay/internal/adapters/httpapi"
	"EventRelay/internal/adapters/postgres"
	"EventRelay/internal/adapters/security"
	"EventRelay/internal/adapters/telegram"
	"EventRelay/internal/core/domain"
	"EventRelay/internal/relay"
	"EventRelay/internal/shared/config"
	"EventRelay/internal/shared/logger"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode, cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Bool("journal", cfg.JournalEnabled()).
		Bool("notifier", cfg.NotifierEnabled()).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 4. Event bus
	opts := []eventbus.Option{eventbus.WithMetrics(eventbus.NewMetrics(reg))}
	if cfg.Bus.BusyPoll {
		opts = append(opts, eventbus.WithBusyPoll())
	}
	bus := eventbus.NewBus[domain.Kind, domain.Event](
		eventbus.OnValue[domain.Event]{Sentinel: domain.ShutdownSentinel},
		&baseLogger,
		opts...,
	)

	// 5. Optional adapters
	var deps relay.Deps
	var apiOpts []httpapi.Option

	if cfg.JournalEnabled() {
		cipher, err := security.NewPayloadCipherFromHex(cfg.EncryptionKey, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize payload cipher")
		}

		db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to prepare journal schema")
		}

		deps.Journal = postgres.NewEventJournal(db, cipher, &baseLogger)
		apiOpts = append(apiOpts, httpapi.WithJournal(deps.Journal))
	}

	if cfg.NotifierEnabled() {
		notifier, err := telegram.NewBotNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, isDevMode, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize notifier")
		}
		deps.Notifier = notifier
	}

	// 6. Consumers
	orch := relay.NewOrchestrator(bus, &baseLogger)
	relay.RegisterAllConsumers(orch, deps, &baseLogger)

	// 7. HTTP ingress
	apiOpts = append(apiOpts, httpapi.WithGatherer(reg))
	api := httpapi.NewServer(bus.EventSink(), &baseLogger, apiOpts...)
	defer api.Close()

	orch.WithHTTPServer(&http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	})

	// 8. Run until a signal arrives
	baseLogger.Info().Msg("All services initialized successfully")
	if err := orch.Start(ctx); err != nil {
		baseLogger.Error().Err(err).Msg("Relay stopped with an error")
		return
	}
	baseLogger.Info().Msg("Shutdown complete")
}
