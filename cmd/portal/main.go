package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/harmonia-web/portal/internal/apiclient"
	"github.com/harmonia-web/portal/internal/app"
	"github.com/harmonia-web/portal/internal/menu"
	"github.com/harmonia-web/portal/internal/observability"
	"github.com/harmonia-web/portal/internal/platform/cache"
	"github.com/harmonia-web/portal/internal/shared"
	"github.com/harmonia-web/portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	apiClient, err := apiclient.New(apiclient.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		RetryMax: cfg.APIRetryMax,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	engines, err := shared.NewRegistry(cfg.SessionMaxEngines, app.NewEngineFactory(cfg, apiClient, redisClient, logger), logger)
	if err != nil {
		logger.Error("init engine registry", slog.Any("error", err))
		os.Exit(1)
	}
	defer engines.Close()
	metrics.TrackEngines(engines.Len)

	menuMetrics, err := menu.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register menu metrics", slog.Any("error", err))
		os.Exit(1)
	}
	resolver := menu.NewResolver(apiClient, menu.NewCache(cfg.MenuTTL, nil),
		menu.WithMetrics(menuMetrics), menu.WithLogger(logger))

	broadcaster, err := app.NewBroadcaster(cfg, redisClient, logger)
	if err != nil {
		logger.Error("init menu broadcaster", slog.Any("error", err))
		os.Exit(1)
	}
	if err := menu.Watch(ctx, broadcaster, resolver); err != nil {
		logger.Warn("watch menu invalidations", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: shared.NewSessionManager(cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction()),
		CSRFManager:    shared.NewCSRFManager(cfg.SessionSecret),
		Engines:        engines,
		API:            apiClient,
		Menu:           resolver,
		Broadcaster:    broadcaster,
		JobHandler:     jobs.NewHandler(inspector, jobClient, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
