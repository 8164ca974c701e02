package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/app"
	"github.com/cimillas/furniture-backoffice/internal/cache"
	"github.com/cimillas/furniture-backoffice/internal/clock"
	"github.com/cimillas/furniture-backoffice/internal/config"
	"github.com/cimillas/furniture-backoffice/internal/storage/postgres"
	"github.com/cimillas/furniture-backoffice/internal/telemetry"
	transporthttp "github.com/cimillas/furniture-backoffice/internal/transport/http"
	"github.com/cimillas/furniture-backoffice/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serviceName     = "furniture-api"
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := telemetry.NewLogger(os.Stderr, slog.LevelInfo, serviceName)
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	logger = telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.ServiceName)
	slog.SetDefault(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(startupCtx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return err
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return err
	}

	metrics := telemetry.NewMetrics(nil)
	clk := clock.NewSystemIn(cfg.Location)
	outbox := postgres.NewOutboxRepository(pool)

	opts := []app.Option{
		app.WithTransitionPolicy(cfg.TransitionPolicy),
		app.WithGatewayTimeout(cfg.GatewayTimeout),
		app.WithOutbox(outbox),
		app.WithRecorder(metrics),
		app.WithLogger(logger),
	}
	if cfg.DepositCap {
		opts = append(opts, app.WithDepositCap())
	}

	orderSvc := app.NewOrderService(
		postgres.NewOrderRepository(pool),
		postgres.NewUserDirectory(pool),
		postgres.NewProductCatalog(pool),
		clk,
		opts...,
	)
	surveySvc := app.NewSurveyService(postgres.NewSurveyRepository(pool), clk, opts...)

	var dashboard transporthttp.DashboardService = app.NewReportService(postgres.NewReportRepository(pool), clk)
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
		defer redisCache.Close()
		if err := redisCache.Ping(startupCtx); err != nil {
			logger.Warn("redis unreachable, dashboard reads fall through", "addr", cfg.RedisAddr, "error", err)
		}
		dashboard = cache.NewDashboardCache(dashboard, redisCache, cfg.DashboardCacheTTL, clk.Now, logger)
	}

	handler := transporthttp.NewRouter(transporthttp.Deps{
		Orders:      orderSvc,
		Surveys:     surveySvc,
		Dashboard:   dashboard,
		Metrics:     metrics,
		DB:          pool,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Location:    cfg.Location,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", "port", cfg.Port, "policy", cfg.TransitionPolicy.Name())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
