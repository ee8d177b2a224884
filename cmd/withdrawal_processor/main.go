package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fundflow-core/internal/balance"
	"github.com/fundflow-core/internal/config"
	"github.com/fundflow-core/internal/data/mongo"
	"github.com/fundflow-core/internal/data/postgres"
	"github.com/fundflow-core/internal/locking"
	"github.com/fundflow-core/internal/logger"
	"github.com/fundflow-core/internal/platform/messaging/consumers"
	"github.com/fundflow-core/internal/platform/messaging/producers"
	"github.com/fundflow-core/internal/platform/persistence"
	"github.com/fundflow-core/internal/processor"
	"github.com/fundflow-core/internal/reconciler"
	"github.com/fundflow-core/internal/withdrawal"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("withdrawal_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Withdrawal Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	// Kafka: approval consumer, event producer, DLQ
	approvalConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.ApprovalTopic)

	eventProducer, err := producers.NewEntryEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize entry event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; consumers of it
	// are nil-safe.

	// Coordination layer
	lockManager := locking.NewManager(log, redisClient)
	aggregator := balance.NewAggregator(log, ledgerRepo)
	coordinator := withdrawal.NewCoordinator(log, cfg.Locking, ledgerRepo, accountRepo, lockManager, aggregator, eventProducer)

	// Decision pipeline: coordinator behind an ants worker pool
	baseDecisions := processor.NewCoordinatorDecisionService(log, coordinator)
	decisions, err := processor.NewWorkerPoolDecisionService(baseDecisions, processor.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize decision worker pool", "error", err)
		os.Exit(1)
	}

	approvalHandler := processor.NewApprovalEventHandler(log, decisions, dlqProducer)

	// Reconciliation sweeper for stale entries
	sweeper, err := reconciler.NewSweeper(log, &cfg.Reconciler, cfg.WorkerPool.Size, ledgerRepo, dlqProducer)
	if err != nil {
		log.Error("Failed to initialize reconciliation sweeper", "error", err)
		os.Exit(1)
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting approval consumer",
			"topic", cfg.Kafka.ApprovalTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := approvalConsumer.Subscribe(appCtx, approvalHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("approval consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	decisions.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing entry event producer", "error", err)
	}

	if err = approvalConsumer.Close(); err != nil {
		log.Error("Error closing approval consumer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Withdrawal processor shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Withdrawal processor shutdown completed successfully")
	}
}
