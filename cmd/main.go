package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"chat-relay/api"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so deferred cleanup (database close, limiter
// stop) always executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	repository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = repository.Close()
	}()

	// 3. Shared state & routing
	identities := domain.Identities{
		SystemReceiver: config.SystemReceiverID,
		Admin:          config.AdminID,
	}
	registry := prometheus.NewRegistry()
	collector := observability.NewCollector(registry)

	presence := runtime.NewPresence()
	sessions := runtime.NewSessions()
	addresses := runtime.NewRegistry(log, collector)
	notifications := make(chan domain.Message, config.NotificationBuffer)

	router := runtime.NewRouter(log, sessions, presence, repository,
		addresses, notifications, collector, identities)
	dispatcher := runtime.NewDispatcher(log, sessions, presence, addresses,
		notifications, collector, identities)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewNotifierWorker(log, addresses, notifications))
	sup.Add(workers.NewStorageGCWorker(log, db, config.StorageGCInterval))
	go sup.Run(ctx)

	// 6. HTTP server: query surface, metrics and the WebSocket endpoint
	wsServer := ws.NewServer(log, router, dispatcher, addresses,
		config.ConnectionBufferSize, rate.Limit(config.MessageRatePerSec), config.MessageBurst)
	apiServer := api.NewServer(log, repository, presence, config.RecentLimit)
	limiter := api.NewRateLimiter(rate.Limit(config.APIRatePerSec), config.APIBurst)
	defer limiter.Stop()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: apiServer.Routes(limiter, registry, wsServer.Handler),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
