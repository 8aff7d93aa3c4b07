// Package health assembles scorer inputs from storage and applies the
// pure scorer. Link coverage below the configured threshold yields the
// insufficient-data sentinel instead of a number.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/internal/gate"
	"github.com/clientpulse/clientpulse-backend/internal/health"
)

// invoiceRepo defines the invoice reads needed by this service.
type invoiceRepo interface {
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Invoice, error)
}

// issueRepo defines the issue reads needed by this service.
type issueRepo interface {
	List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error)
}

// taskRepo defines the task reads needed by this service.
type taskRepo interface {
	List(ctx context.Context) ([]*domain.Task, error)
}

// Service computes client health scores.
type Service struct {
	log               *slog.Logger
	invoices          invoiceRepo
	issues            issueRepo
	tasks             taskRepo
	coverageThreshold float64
	now               func() time.Time
}

// NewService creates a new health service instance.
func NewService(
	logger *slog.Logger,
	invoices invoiceRepo,
	issues issueRepo,
	tasks taskRepo,
	coverageThreshold float64,
) *Service {
	return &Service{
		log:               logger.With("service", "health"),
		invoices:          invoices,
		issues:            issues,
		tasks:             tasks,
		coverageThreshold: coverageThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// ForClient scores one client against the current data.
func (s *Service) ForClient(ctx context.Context, clientID uuid.UUID) (health.Score, error) {
	var (
		invoices []*domain.Invoice
		issues   []*domain.Issue
		tasks    []*domain.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		invoices, err = s.invoices.ListByClient(gctx, clientID)
		return err
	})
	g.Go(func() (err error) {
		issues, err = s.issues.List(gctx, domain.IssueFilter{ClientID: &clientID})
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.tasks.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return health.Score{}, err
	}

	now := s.now()
	var outstanding, overdue, totalBilled int64
	for _, inv := range invoices {
		switch inv.Status {
		case domain.InvoiceOpen:
			outstanding += inv.AmountCents
			totalBilled += inv.AmountCents
			if inv.IsOverdue(now) {
				overdue += inv.AmountCents
			}
		case domain.InvoicePaid:
			totalBilled += inv.AmountCents
		}
	}

	coverage, measured := gate.LinkCoverage(tasks)
	score := health.Compute(health.Inputs{
		OutstandingCents:  outstanding,
		OverdueCents:      overdue,
		TotalBilledCents:  totalBilled,
		Issues:            issues,
		LinkCoverage:      coverage,
		CoverageThreshold: s.coverageThreshold,
		MeasuredTasks:     measured,
	})

	if score.InsufficientData {
		s.log.Warn("health not scored, link coverage below threshold",
			"client_id", clientID, "coverage", coverage, "threshold", s.coverageThreshold)
	}
	return score, nil
}
