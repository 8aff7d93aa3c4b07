// Command sweep runs the time-driven lifecycle maintenance: surfacing
// detected issues whose signal volume crossed the threshold, waking
// expired snoozes on issues and inbox items, closing elapsed regression
// watches, and purging expired suppression rules.
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
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/inbox"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/issue"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/signal"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/suppression"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/transition"
	"github.com/clientpulse/clientpulse-backend/internal/app"
	"github.com/clientpulse/clientpulse-backend/internal/config"
	inboxsvc "github.com/clientpulse/clientpulse-backend/internal/service/inbox"
	issuesvc "github.com/clientpulse/clientpulse-backend/internal/service/issue"
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

	issues := issue.NewRepository(pool)
	signals := signal.NewRepository(pool)
	suppressions := suppression.NewRepository(pool)
	transitions := transition.NewRepository(pool)

	inboxSvc := inboxsvc.NewService(
		logger,
		inbox.NewRepository(pool),
		issues,
		signals,
		suppressions,
		transitions,
		tx,
	)

	issueSvc := issuesvc.NewService(
		logger,
		issues,
		signals,
		inboxSvc,
		transitions,
		tx,
		cfg.Engine.SurfaceThreshold,
		cfg.Engine.RegressionWatchDays,
		cfg.Engine.Timezone(),
	)

	now := time.Now().UTC()

	surfaced, err := issueSvc.SurfaceDetected(ctx)
	if err != nil {
		logger.Error("surface sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	wokenIssues, err := issueSvc.ExpireSnoozes(ctx, now)
	if err != nil {
		logger.Error("issue snooze sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	closedWatches, err := issueSvc.CloseExpiredWatches(ctx, now)
	if err != nil {
		logger.Error("regression watch sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	wokenItems, err := inboxSvc.ExpireSnoozes(ctx, now)
	if err != nil {
		logger.Error("inbox snooze sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	purged, err := suppressions.DeleteExpired(ctx, now)
	if err != nil {
		logger.Error("suppression purge failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("sweep completed",
		slog.Int("issues_surfaced", surfaced),
		slog.Int("issue_snoozes_expired", wokenIssues),
		slog.Int("watches_closed", closedWatches),
		slog.Int("inbox_snoozes_expired", wokenItems),
		slog.Int64("suppressions_purged", purged),
	)
}
