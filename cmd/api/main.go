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

	"go.uber.org/zap"

	"taskplanner/internal/config"
	"taskplanner/internal/handler"
	"taskplanner/internal/httpserver"
	"taskplanner/internal/llm"
	"taskplanner/internal/repository"
	"taskplanner/internal/scheduler"
	"taskplanner/internal/service"
	"taskplanner/internal/store"
	"taskplanner/pkg/db"
	"taskplanner/pkg/logger"
	"taskplanner/pkg/mq"
	"taskplanner/pkg/ratelimit"
	redisclient "taskplanner/pkg/redis"
)

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

	log.Info("Starting api...",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Addr()),
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
		log.Warn("Redis not reachable at startup, drafts unavailable until it recovers", zap.Error(err))
	}

	// MQ Publisher，失败时只是不发事件
	var events service.EventPublisher
	publisher, err := mq.NewPublisher(ctx, cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ publisher unavailable, schedule events disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn)
	profileRepo := repository.NewProfileRepository(dbConn)

	// Services
	engine := newEngine(cfg, log)
	scheduleService := service.NewScheduleService(
		taskRepo,
		profileRepo,
		store.NewDraftStore(rdb, cfg.Scheduler.DraftTTL),
		events,
		engine,
		scheduler.SystemClock{},
		cfg.Scheduler.DefaultBudgetMinutes,
		log,
	)

	// Handlers
	taskHandler := handler.NewTaskHandler(taskRepo, log)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, log)

	checks := []httpserver.ReadinessCheck{
		{Name: "db", Check: dbConn.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisclient.Ping(ctx, rdb) }},
	}
	var limiter *ratelimit.Limiter
	if cfg.Server.GeneratePerMinute > 0 {
		limiter = ratelimit.NewLimiter(rdb, cfg.Server.GeneratePerMinute)
	}
	router := httpserver.NewRouter(taskHandler, scheduleHandler, cfg.JWT.Secret, checks, limiter, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down api gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("api shutdown complete")
}

func newEngine(cfg *config.Config, logger *zap.Logger) *scheduler.Engine {
	opts := scheduler.Options{
		TimeLayout: cfg.Scheduler.TimeFormat,
		Location:   cfg.Location,
		LLMTimeout: cfg.LLM.Timeout,
	}

	gemini := llm.NewGeminiClient(cfg.LLM, logger)
	if !gemini.Enabled() {
		logger.Info("LLM api key not set, energy schedules use the local algorithm")
		return scheduler.NewEngine(nil, nil, opts, logger)
	}
	return scheduler.NewEngine(gemini, nil, opts, logger)
}
