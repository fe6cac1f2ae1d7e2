package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/brickline/estimator-backend/api/routes"
	"github.com/brickline/estimator-backend/internal/catalog"
	"github.com/brickline/estimator-backend/internal/estimate"
	"github.com/brickline/estimator-backend/internal/takeoff"
	"github.com/brickline/estimator-backend/pkg/config"
	"github.com/brickline/estimator-backend/pkg/db"
	"github.com/brickline/estimator-backend/pkg/logger"
	"github.com/brickline/estimator-backend/pkg/metrics"
	"github.com/brickline/estimator-backend/pkg/migrate"
	"github.com/brickline/estimator-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	defer func() {
		closeErr := multierr.Append(dbClient.Close(), redisClient.Close())
		if closeErr != nil {
			logg.Error(context.Background(), "error closing clients", closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	takeoffRepo := takeoff.NewRepository(dbClient.DB())
	takeoffService, err := takeoff.NewService(takeoffRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create takeoff service", err)
		os.Exit(1)
	}

	normRepo := catalog.NewNormRepository(dbClient.DB())
	resourceRepo := catalog.NewResourceRepository(dbClient.DB())
	catalogService, err := catalog.NewService(normRepo, resourceRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	estimateService, err := estimate.NewService(
		dbClient,
		estimate.NewRepository(dbClient.DB()),
		estimate.NewBudgetRepository(dbClient.DB()),
		takeoffRepo,
		normRepo,
		syncMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create estimate service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			takeoffService,
			estimateService,
			catalogService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
