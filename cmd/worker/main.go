package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mo-amir99/course-platform-go/internal/tasks"
	"github.com/mo-amir99/course-platform-go/pkg/cache"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/database"
	"github.com/mo-amir99/course-platform-go/pkg/email"
	"github.com/mo-amir99/course-platform-go/pkg/jobs"
	"github.com/mo-amir99/course-platform-go/pkg/logger"
	"github.com/mo-amir99/course-platform-go/pkg/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	appLogger = appLogger.With(slog.String("component", "worker"))

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		rdb = redisClient.Redis()
	}

	consumer, err := queue.New(cfg.Queue, rdb, appLogger)
	if err != nil {
		appLogger.Error("queue initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	loc, err := time.LoadLocation(cfg.Worker.TimeZone)
	if err != nil {
		appLogger.Error("invalid worker time zone", slog.String("tz", cfg.Worker.TimeZone), slog.String("error", err.Error()))
		os.Exit(1)
	}

	scheduler := jobs.NewScheduler(appLogger, jobs.WithLocation(loc))
	if err := scheduler.AddJob(cfg.Worker.InactivitySchedule, tasks.NewInactivityJob(db, cfg.Worker.InactivityDays, appLogger)); err != nil {
		appLogger.Error("schedule inactivity job failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	courseUpdates := tasks.NewCourseUpdateJob(tasks.NewNotificationStore(db), email.NewClient(cfg.Email), cfg.PublicURL, appLogger)
	registry := tasks.NewRegistry(appLogger)
	registry.Register(tasks.TypeCourseUpdated, courseUpdates.HandleMessage)

	metricsSrv := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("metrics listener failed", slog.String("error", err.Error()))
		}
	}()

	appLogger.Info("worker started",
		slog.String("queue", cfg.Queue.Driver),
		slog.Any("task_types", registry.Types()),
		slog.Any("jobs", scheduler.Jobs()),
	)

	if err := consumer.Consume(ctx, registry.Dispatch); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("queue consumer stopped", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	appLogger.Info("worker stopped")
}
