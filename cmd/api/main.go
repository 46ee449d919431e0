package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goldenlotto/lottery-backend/api/routes"
	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/internal/bets"
	"github.com/goldenlotto/lottery-backend/internal/commission"
	"github.com/goldenlotto/lottery-backend/internal/ledger"
	"github.com/goldenlotto/lottery-backend/internal/settlement"
	"github.com/goldenlotto/lottery-backend/internal/transfers"
	"github.com/goldenlotto/lottery-backend/pkg/config"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
	"github.com/goldenlotto/lottery-backend/pkg/metrics"
	"github.com/goldenlotto/lottery-backend/pkg/migrate"
	"github.com/goldenlotto/lottery-backend/pkg/redis"
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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

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
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	accountService, err := accounts.NewService(dbClient, accounts.NewRepository(dbClient.DB()), ledgerRepo, cfg.Settlement.AgentNegativeFloat)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	commissionService, err := commission.NewService(dbClient, commission.NewRepository(dbClient.DB()), accountService, accountService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	betRepo := bets.NewRepository(dbClient.DB())
	betService, err := bets.NewService(dbClient, betRepo, accountService, commissionService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bet service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(dbClient, settlement.NewRepository(dbClient.DB()), betRepo, accountService, logg, cfg.Settlement.BetPageSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	transferService, err := transfers.NewService(accountService, commissionService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

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
			redisClient,
			httpMetrics,
			registry,
			accountService,
			ledgerService,
			betService,
			settlementService,
			transferService,
			commissionService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
