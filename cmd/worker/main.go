package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskplanner/contracts/mq"
	"taskplanner/internal/config"
	"taskplanner/internal/llm"
	"taskplanner/internal/mqhandler"
	"taskplanner/internal/repository"
	"taskplanner/internal/runner"
	"taskplanner/internal/scheduler"
	"taskplanner/internal/service"
	"taskplanner/internal/store"
	"taskplanner/pkg/db"
	"taskplanner/pkg/logger"
	"taskplanner/pkg/mq"
	"taskplanner/pkg/outbox"
	redisclient "taskplanner/pkg/redis"
	"taskplanner/pkg/util"
)

const scheduleRequestedQueue = "schedule.requested.q"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting worker...",
		zap.String("env", cfg.Env),
		zap.String("daily_cron", cfg.Scheduler.DailyCron),
		zap.String("tz", cfg.Location.String()),
	)

	// DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := redisclient.Ping(ctx, rdb); err != nil {
		log.Warn("Redis not reachable at startup", zap.Error(err))
	}

	// MQ Publisher
	publisher, err := mq.NewPublisher(ctx, cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn)
	profileRepo := repository.NewProfileRepository(dbConn)

	// Services
	scheduleService := service.NewScheduleService(
		taskRepo,
		profileRepo,
		store.NewDraftStore(rdb, cfg.Scheduler.DraftTTL),
		publisher,
		newEngine(cfg, log),
		scheduler.SystemClock{},
		cfg.Scheduler.DefaultBudgetMinutes,
		log,
	)

	// MQ Handlers
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)
	requestedHandler := mqhandler.NewScheduleRequestedHandler(scheduleService, deduper, log)

	log.Info("Initializing MQ consumer for schedule.requested...",
		zap.String("queue", scheduleRequestedQueue),
		zap.String("routing_key", mqcontracts.RoutingScheduleRequested),
	)
	consumer, err := mq.NewConsumer(ctx, cfg.MQ.URL, scheduleRequestedQueue, mqcontracts.RoutingScheduleRequested, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(requestedHandler.Handle)
	if err := consumer.SetRetryPolicy(util.NewRetryCounter(rdb, time.Hour), cfg.MQ.MaxRetries, publisher); err != nil {
		log.Fatal("Failed to set retry policy", zap.Error(err))
	}

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.StartConsuming(ctx)
	}()

	// Outbox dispatcher：发布 schedule.saved
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log)
	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Start(ctx)
		close(dispatcherDone)
	}()

	// Daily runner
	daily, err := runner.NewDailyRunner(taskRepo, publisher, cfg.Scheduler.DailyCron, cfg.Location, scheduler.SystemClock{}, log)
	if err != nil {
		log.Fatal("Failed to init daily runner", zap.Error(err))
	}
	daily.Start(ctx)

	log.Info("worker is fully initialized and running")

	select {
	case <-ctx.Done():
	case err := <-consumerDone:
		if err != nil {
			log.Error("Consumer stopped", zap.Error(err))
		}
	}

	log.Info("Shutting down worker gracefully...")
	stop()
	daily.Stop()
	<-dispatcherDone

	log.Info("worker shutdown complete")
}

func newEngine(cfg *config.Config, logger *zap.Logger) *scheduler.Engine {
	opts := scheduler.Options{
		TimeLayout: cfg.Scheduler.TimeFormat,
		Location:   cfg.Location,
		LLMTimeout: cfg.LLM.Timeout,
	}

	gemini := llm.NewGeminiClient(cfg.LLM, logger)
	if !gemini.Enabled() {
		return scheduler.NewEngine(nil, nil, opts, logger)
	}
	return scheduler.NewEngine(gemini, nil, opts, logger)
}
