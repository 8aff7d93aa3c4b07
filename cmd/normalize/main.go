// Command normalize runs one derivation pass, verifies the gate battery
// over the result, and refreshes the resolution queue. A failed blocking
// gate skips the refresh. It is intended to be invoked by an external
// cron job or after a bulk ingest, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/account"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/engagement"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/invoice"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/resolution"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/task"
	"github.com/clientpulse/clientpulse-backend/internal/app"
	"github.com/clientpulse/clientpulse-backend/internal/config"
	normalizersvc "github.com/clientpulse/clientpulse-backend/internal/service/normalizer"
	resolutionsvc "github.com/clientpulse/clientpulse-backend/internal/service/resolution"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	tx := postgres.NewTxManager(pool)

	normalizer := normalizersvc.NewService(
		logger,
		account.NewClientRepository(pool),
		account.NewBrandRepository(pool),
		engagement.NewRepository(pool),
		task.NewRepository(pool),
		invoice.NewRepository(pool),
		tx,
		cfg.Engine.LinkCoverageThreshold,
	)

	res, err := normalizer.Run(ctx)
	if err != nil {
		logger.Error("derivation pass failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	report, err := normalizer.Verify(ctx)
	if err != nil {
		logger.Error("gate evaluation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if report.Blocked() {
		logger.Error("blocking gate failed, skipping queue refresh")
		os.Exit(1)
	}

	queue := resolutionsvc.NewService(
		logger,
		engagement.NewRepository(pool),
		task.NewRepository(pool),
		invoice.NewRepository(pool),
		resolution.NewRepository(pool),
		tx,
		time.Duration(cfg.Engine.ResolutionUrgencyDays)*24*time.Hour,
	)

	qres, err := queue.Refresh(ctx)
	if err != nil {
		logger.Error("queue refresh failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("normalize completed",
		slog.Int("engagement_updates", len(res.EngagementUpdates)),
		slog.Int("task_updates", len(res.TaskUpdates)),
		slog.Bool("degraded", report.Degraded()),
		slog.Int("queue_inserts", len(qres.Inserts)),
		slog.Int("queue_closed", len(qres.Close)),
	)
}
