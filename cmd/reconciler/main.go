package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/internal/bets"
	"github.com/goldenlotto/lottery-backend/internal/ledger"
	"github.com/goldenlotto/lottery-backend/internal/reconciler"
	"github.com/goldenlotto/lottery-backend/internal/settlement"
	"github.com/goldenlotto/lottery-backend/pkg/config"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
	"github.com/goldenlotto/lottery-backend/pkg/metrics"
	"github.com/goldenlotto/lottery-backend/pkg/migrate"
	"github.com/goldenlotto/lottery-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
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

	settlementService, err := settlement.NewService(dbClient, settlement.NewRepository(dbClient.DB()), bets.NewRepository(dbClient.DB()), accountService, logg, cfg.Settlement.BetPageSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	service, err := reconciler.NewService(reconciler.ServiceParams{
		Settlement:   settlementService,
		Ledger:       ledgerService,
		Lease:        redisClient,
		Metrics:      metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		PollInterval: cfg.Reconciler.PollInterval,
		PendingAge:   cfg.Reconciler.PendingAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"poll_interval": cfg.Reconciler.PollInterval.String(),
	})
	logg.Info(ctx, "starting settlement reconciler")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconciler shutting down gracefully")
}
