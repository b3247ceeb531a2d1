package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"chathub/api"
	"chathub/auth"
	"chathub/bus"
	"chathub/contract"
	"chathub/internal/logs"
	"chathub/presence"
	"chathub/repositories"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/services"
	"chathub/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
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
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Cross-node plumbing. A single node runs fine without Redis; the
	// in-memory bus and presence then only cover connections of this node.
	var (
		messageBus    contract.Bus
		presenceStore contract.Presence
	)
	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url invalid: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		defer func() { _ = client.Close() }()
		messageBus = bus.NewRedis(client, log, config.BusBufferSize)
		presenceStore = presence.NewRedis(client, config.PresenceTTL)
		log.Info("Using Redis bus and presence", "url", config.RedisURL)
	} else {
		messageBus = bus.NewMemory(log, config.BusBufferSize)
		presenceStore = presence.NewMemory(config.PresenceTTL)
		log.Warn("REDIS_URL not set, running single node with in-memory bus")
	}

	// 5. Repositories & Services
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	friendshipRepository := repositories.NewFriendshipRepository(db)
	chatService := services.NewChatService(log, messageRepository, userRepository, config.MaxContentLength)
	tokenService := auth.NewTokenService(config.TokenSecret, config.TokenDuration)

	// 6. Registry, Protocol & Supervision
	registry := runtime.NewRegistry()
	protocol := ws.NewProtocol(log, chatService, friendshipRepository, messageBus, registry, presenceStore)
	wsHandler := ws.NewHandler(log, tokenService, userRepository, registry, presenceStore, protocol, config.SendBufferSize)

	sup := workers.NewSupervisor(log, config.RestartInterval).Add(
		workers.NewFanoutWorker(log, messageBus, registry),
		workers.NewPresenceHeartbeatWorker(log, registry, presenceStore, config.HeartbeatInterval),
		workers.NewReporterWorker(log, registry, config.ReportInterval),
	)
	go sup.Run(ctx)

	// 7. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	router := api.NewRouter(log, tokenService, chatService, wsHandler.ServeWS, config.CORSOrigins)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
