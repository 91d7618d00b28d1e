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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mo-amir99/course-platform-go/internal/bootstrap"
	"github.com/mo-amir99/course-platform-go/internal/http/routes"
	"github.com/mo-amir99/course-platform-go/internal/tasks"
	"github.com/mo-amir99/course-platform-go/pkg/cache"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/database"
	"github.com/mo-amir99/course-platform-go/pkg/email"
	"github.com/mo-amir99/course-platform-go/pkg/health"
	"github.com/mo-amir99/course-platform-go/pkg/logger"
	"github.com/mo-amir99/course-platform-go/pkg/paymentprovider"
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

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

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

	if err := bootstrap.ApplyDatabaseMigrations(db, cfg.Database, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := bootstrap.EnsureDefaultSuperuser(ctx, db, cfg.Auth.SuperuserEmail, cfg.Auth.SuperuserPassword, appLogger); err != nil {
		appLogger.Error("ensure superuser failed", slog.String("error", err.Error()))
	}

	healthHandler := health.NewHandler(appLogger).WithCheck("database", health.DatabaseCheck(db))

	// Redis backs rate limiting and the redis queue driver.
	var (
		store cache.Client = cache.NewMemoryCache()
		rdb   *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = redisClient
		rdb = redisClient.Redis()
		healthHandler.WithCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	defer store.Close()

	publisher, err := queue.New(cfg.Queue, rdb, appLogger)
	if err != nil {
		appLogger.Error("queue initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer publisher.Close()

	router := routes.NewRouter(routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Logger:    appLogger,
		Cache:     store,
		Notifier:  tasks.NewCoursePublisher(publisher),
		Processor: paymentprovider.NewStripe(cfg.Stripe),
		Mailer:    email.NewClient(cfg.Email),
		Health:    healthHandler,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("queue", cfg.Queue.Driver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
