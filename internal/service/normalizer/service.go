// Package normalizer runs the derivation pass: load the full snapshot,
// recompute every derived link, and persist only the rows whose derived
// values actually changed.
package normalizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/internal/gate"
	"github.com/clientpulse/clientpulse-backend/internal/normalize"
)

// clientRepo defines the client reads needed by this service.
type clientRepo interface {
	List(ctx context.Context) ([]*domain.Client, error)
}

// brandRepo defines the brand reads needed by this service.
type brandRepo interface {
	List(ctx context.Context) ([]*domain.Brand, error)
}

// engagementRepo defines the engagement access needed by this service.
type engagementRepo interface {
	List(ctx context.Context) ([]*domain.Engagement, error)
	UpdateDerivedClient(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) error
}

// taskRepo defines the task access needed by this service.
type taskRepo interface {
	List(ctx context.Context) ([]*domain.Task, error)
	UpdateDerived(ctx context.Context, id uuid.UUID, brandID, clientID *uuid.UUID, project domain.ProjectLinkStatus, client domain.ClientLinkStatus) error
}

// invoiceRepo defines the invoice reads needed by the gate battery.
type invoiceRepo interface {
	List(ctx context.Context) ([]*domain.Invoice, error)
}

// txManager defines the transaction manager interface needed by this service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the derivation pass and the gate battery that
// verifies its result.
type Service struct {
	log               *slog.Logger
	clients           clientRepo
	brands            brandRepo
	engagements       engagementRepo
	tasks             taskRepo
	invoices          invoiceRepo
	tx                txManager
	coverageThreshold float64
}

// NewService creates a new normalizer service instance.
func NewService(
	logger *slog.Logger,
	clients clientRepo,
	brands brandRepo,
	engagements engagementRepo,
	tasks taskRepo,
	invoices invoiceRepo,
	tx txManager,
	coverageThreshold float64,
) *Service {
	return &Service{
		log:               logger.With("service", "normalizer"),
		clients:           clients,
		brands:            brands,
		engagements:       engagements,
		tasks:             tasks,
		invoices:          invoices,
		tx:                tx,
		coverageThreshold: coverageThreshold,
	}
}

// snapshot is the full working set one pass derives against.
type snapshot struct {
	clients     []*domain.Client
	brands      []*domain.Brand
	engagements []*domain.Engagement
	tasks       []*domain.Task
}

func (s *Service) loadSnapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.clients, err = s.clients.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.brands, err = s.brands.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.engagements, err = s.engagements.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.tasks, err = s.tasks.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// Run executes one derivation pass and returns the diff it applied.
// Idempotent: a second run over an unchanged snapshot writes nothing.
func (s *Service) Run(ctx context.Context) (normalize.Result, error) {
	started := time.Now()

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return normalize.Result{}, err
	}

	res := normalize.Run(
		normalize.NewSnapshot(snap.clients, snap.brands, snap.engagements),
		snap.engagements,
		snap.tasks,
	)
	if res.Empty() {
		s.log.Info("derivation pass clean",
			"engagements", len(snap.engagements), "tasks", len(snap.tasks),
			"elapsed", time.Since(started))
		return res, nil
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, u := range res.EngagementUpdates {
			if err := s.engagements.UpdateDerivedClient(ctx, u.ID, u.ClientID); err != nil {
				return err
			}
		}
		for _, u := range res.TaskUpdates {
			d := u.Derivation
			if err := s.tasks.UpdateDerived(ctx, u.ID, d.BrandID, d.ClientID, d.ProjectLinkStatus, d.ClientLinkStatus); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return normalize.Result{}, err
	}

	s.log.Info("derivation pass applied",
		"engagement_updates", len(res.EngagementUpdates),
		"task_updates", len(res.TaskUpdates),
		"elapsed", time.Since(started))
	return res, nil
}

// Verify runs the gate battery over the stored state. After a clean
// Run the consistency gates hold by construction; violations here mean
// concurrent writes landed mid-pass. Failed gates are logged at a level
// matching their policy.
func (s *Service) Verify(ctx context.Context) (gate.Report, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return gate.Report{}, err
	}
	invoices, err := s.invoices.List(ctx)
	if err != nil {
		return gate.Report{}, err
	}

	report := gate.Evaluate(gate.Input{
		Snapshot:          normalize.NewSnapshot(snap.clients, snap.brands, snap.engagements),
		Engagements:       snap.engagements,
		Tasks:             snap.tasks,
		Invoices:          invoices,
		CoverageThreshold: s.coverageThreshold,
	})

	for _, res := range report.Results {
		if res.Passed {
			continue
		}
		switch res.Policy {
		case domain.GatePolicyBlock:
			s.log.Error("gate failed", "gate", string(res.Name), "violations", res.Violations)
		case domain.GatePolicyDegrade:
			s.log.Warn("gate failed", "gate", string(res.Name), "coverage", report.Coverage)
		default:
			s.log.Warn("gate failed", "gate", string(res.Name), "violations", res.Violations)
		}
	}
	return report, nil
}
