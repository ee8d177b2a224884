package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fundflow-core/internal/api_gateway"
	"github.com/fundflow-core/internal/api_gateway/service"
	"github.com/fundflow-core/internal/balance"
	"github.com/fundflow-core/internal/config"
	"github.com/fundflow-core/internal/data/mongo"
	"github.com/fundflow-core/internal/data/postgres"
	"github.com/fundflow-core/internal/locking"
	"github.com/fundflow-core/internal/logger"
	"github.com/fundflow-core/internal/platform/messaging/producers"
	"github.com/fundflow-core/internal/platform/persistence"
	"github.com/fundflow-core/internal/ratelimit"
	"github.com/fundflow-core/internal/withdrawal"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewEntryEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize entry event producer", "error", err)
		os.Exit(1)
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	// Coordination layer
	lockManager := locking.NewManager(log, redisClient)
	aggregator := balance.NewAggregator(log, ledgerRepo)
	coordinator := withdrawal.NewCoordinator(log, cfg.Locking, ledgerRepo, accountRepo, lockManager, aggregator, eventProducer)

	// Rate limits: withdrawal creation is a critical context and fails
	// closed; balance reads fail open.
	limiter := ratelimit.NewLimiter(log, ratelimit.NewRedisCounterStore(log, redisClient))
	limiter.Register(ratelimit.ContextWithdrawal, "create", ratelimit.Config{
		Limit:         cfg.RateLimit.WithdrawalLimit,
		WindowSeconds: int(cfg.RateLimit.WithdrawalWindow.Seconds()),
		Strategy:      ratelimit.Strategy(cfg.RateLimit.Strategy),
		BurstLimit:    cfg.RateLimit.WithdrawalBurst,
	})
	limiter.Register(ratelimit.ContextQuery, "balance", ratelimit.Config{
		Limit:         cfg.RateLimit.WithdrawalLimit * 10,
		WindowSeconds: int(cfg.RateLimit.WithdrawalWindow.Seconds()),
		Strategy:      ratelimit.StrategyFixedWindow,
	})

	// Services
	accountService := service.NewAccountService(accountRepo, aggregator)
	ledgerService := service.NewLedgerService(coordinator, ledgerRepo)

	server := api_gateway.NewServer(log, cfg, limiter, accountService, ledgerService)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	postgresDB.Close()

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing entry event producer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
