package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/issue"
	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres/testhelper"
	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

func TestRunInTx_CommitOnSuccess(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	txm := postgres.NewTxManager(pool)
	repo := issue.NewRepository(pool)
	ctx := context.Background()

	client := testhelper.SeedClient(t, pool)

	var saved domain.Issue
	err := txm.RunInTx(ctx, func(ctx context.Context) error {
		created, err := repo.Create(ctx, &domain.Issue{
			Type:     domain.IssueTypeDataQuality,
			Severity: domain.SeverityLow,
			State:    domain.IssueDetected,
			Scope:    domain.Scope{ClientID: &client.ID},
			Title:    "Engagement missing client link",
		})
		if err != nil {
			return err
		}
		saved = *created
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	if _, err := repo.GetByID(ctx, saved.ID); err != nil {
		t.Fatalf("committed issue not visible: %v", err)
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	txm := postgres.NewTxManager(pool)
	repo := issue.NewRepository(pool)
	ctx := context.Background()

	client := testhelper.SeedClient(t, pool)
	boom := errors.New("boom")

	var saved domain.Issue
	err := txm.RunInTx(ctx, func(ctx context.Context) error {
		created, err := repo.Create(ctx, &domain.Issue{
			Type:     domain.IssueTypeDataQuality,
			Severity: domain.SeverityLow,
			State:    domain.IssueDetected,
			Scope:    domain.Scope{ClientID: &client.ID},
			Title:    "Engagement missing client link",
		})
		if err != nil {
			return err
		}
		saved = *created
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx err = %v, want boom", err)
	}

	if _, err := repo.GetByID(ctx, saved.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rolled-back issue lookup = %v, want ErrNotFound", err)
	}
}
