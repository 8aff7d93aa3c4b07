// Package resolution refreshes the manual-repair queue from the current
// snapshot: broken or ambiguous links become open entries, repaired ones
// are closed. The queue never mutates domain data itself.
package resolution

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/internal/queue"
)

// engagementRepo defines the engagement reads needed by this service.
type engagementRepo interface {
	List(ctx context.Context) ([]*domain.Engagement, error)
}

// taskRepo defines the task reads needed by this service.
type taskRepo interface {
	List(ctx context.Context) ([]*domain.Task, error)
}

// invoiceRepo defines the invoice reads needed by this service.
type invoiceRepo interface {
	List(ctx context.Context) ([]*domain.Invoice, error)
}

// queueRepo defines the resolution queue persistence needed by this service.
type queueRepo interface {
	Insert(ctx context.Context, e *domain.ResolutionEntry) error
	ListOpen(ctx context.Context) ([]*domain.ResolutionEntry, error)
	Close(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// txManager defines the transaction manager interface needed by this service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the resolution queue refresh.
type Service struct {
	log           *slog.Logger
	engagements   engagementRepo
	tasks         taskRepo
	invoices      invoiceRepo
	entries       queueRepo
	tx            txManager
	urgencyWindow time.Duration
	now           func() time.Time
}

// NewService creates a new resolution queue service instance.
func NewService(
	logger *slog.Logger,
	engagements engagementRepo,
	tasks taskRepo,
	invoices invoiceRepo,
	entries queueRepo,
	tx txManager,
	urgencyWindow time.Duration,
) *Service {
	if urgencyWindow <= 0 {
		urgencyWindow = queue.DefaultUrgencyWindow
	}
	return &Service{
		log:           logger.With("service", "resolution"),
		engagements:   engagements,
		tasks:         tasks,
		invoices:      invoices,
		entries:       entries,
		tx:            tx,
		urgencyWindow: urgencyWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Refresh rebuilds the queue against the current snapshot. Idempotent:
// open entries are keyed, inserts are absorbed on conflict, and a second
// refresh over an unchanged snapshot changes nothing.
func (s *Service) Refresh(ctx context.Context) (queue.Result, error) {
	var (
		engagements []*domain.Engagement
		tasks       []*domain.Task
		invoices    []*domain.Invoice
		open        []*domain.ResolutionEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		engagements, err = s.engagements.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.tasks.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		invoices, err = s.invoices.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		open, err = s.entries.ListOpen(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return queue.Result{}, err
	}

	now := s.now()
	res := queue.Build(queue.Input{
		Engagements:   engagements,
		Tasks:         tasks,
		Invoices:      invoices,
		Open:          open,
		UrgencyWindow: s.urgencyWindow,
		Now:           now,
	})
	if res.Empty() {
		return res, nil
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, f := range res.Inserts {
			entry := &domain.ResolutionEntry{
				EntityType: f.Key.EntityType,
				EntityID:   f.Key.EntityID,
				IssueType:  f.Key.IssueType,
				Priority:   f.Priority,
				Detail:     f.Detail,
				Open:       true,
			}
			if err := s.entries.Insert(ctx, entry); err != nil {
				return err
			}
		}
		return s.entries.Close(ctx, res.Close, now)
	})
	if err != nil {
		return queue.Result{}, err
	}

	s.log.Info("resolution queue refreshed",
		"inserted", len(res.Inserts), "closed", len(res.Close))
	return res, nil
}

// ListOpen returns the open queue, most urgent first.
func (s *Service) ListOpen(ctx context.Context) ([]*domain.ResolutionEntry, error) {
	return s.entries.ListOpen(ctx)
}
