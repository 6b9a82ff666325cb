package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog_api/internal/api"
	"blog_api/internal/app/service"
	"blog_api/internal/app/worker"
	"blog_api/internal/common/security"
	"blog_api/internal/domain/repository"
	"blog_api/internal/platform/config"
	"blog_api/internal/platform/database"
	"blog_api/internal/platform/logging"
	"blog_api/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	// 2. Initialize Store
	store, checks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// 3. Initialize Redis (optional)
	var cleanupQueue *queue.RedisJobQueue
	rdb, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, running without cleanup queue", "addr", cfg.RedisAddr, "error", err)
	} else {
		defer rdb.Close()
		cleanupQueue = queue.NewRedisJobQueue(rdb, cfg.CleanupQueueName)
		checks = append(checks, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info(ctx, "redis connected", "addr", cfg.RedisAddr)
	}

	// 4. Initialize Services
	tokens := security.NewTokenService([]byte(cfg.JWTSecret), cfg.AccessTokenTTL())
	hasher := security.NewPasswordHasher(cfg.BcryptCost)

	// A nil *RedisJobQueue must not become a non-nil interface.
	var enqueuer service.CleanupEnqueuer
	if cleanupQueue != nil {
		enqueuer = cleanupQueue
	}
	services := api.Services{
		Auth:  service.NewAuthService(store.Users, hasher, tokens),
		Users: service.NewUserService(store.Users, store.Blogs, enqueuer, logger),
		Blogs: service.NewBlogService(store, enqueuer, logger),
	}

	// 5. Initialize Cleanup Worker (as a goroutine)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	workerDone := make(chan struct{})
	if cleanupQueue != nil && cfg.CleanupWorkerEnabled {
		cleanupWorker := worker.NewCleanupWorker(cleanupQueue, store.Users, store.Blogs, cfg.CleanupLockTTL(), logger)
		go func() {
			defer close(workerDone)
			cleanupWorker.Start(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	// 6. Initialize Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(services, logger, checks...),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.APIPort, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		logger.Error(ctx, "server failed", "port", cfg.APIPort, "error", err)
	}

	logger.Info(ctx, "shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn(ctx, "cleanup worker did not stop in time")
	}
	logger.Info(ctx, "server and worker stopped")
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*repository.Store, []api.HealthCheck, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.MigratePostgres(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		logger.Info(ctx, "postgres connected and migrated")
		checks := []api.HealthCheck{{Name: "postgres", Check: db.PingContext}}
		return repository.NewPostgresStore(db), checks, func() { db.Close() }, nil

	case config.StoreMongo:
		m, err := database.ConnectMongo(ctx, cfg.DatabaseURL, cfg.DatabaseName)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, m.DB); err != nil {
			m.Close(ctx)
			return nil, nil, nil, err
		}
		logger.Info(ctx, "mongo connected", "database", cfg.DatabaseName)
		checks := []api.HealthCheck{{Name: "mongo", Check: m.Ping}}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Close(closeCtx); err != nil {
				logger.Warn(closeCtx, "failed to close mongo", "error", err)
			}
		}
		return repository.NewMongoStore(m.DB), checks, closeFn, nil

	default:
		logger.Warn(ctx, "using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), nil, func() {}, nil
	}
}
