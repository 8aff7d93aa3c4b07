// Package issue orchestrates the issue lifecycle: user actions from the
// write surface, the aggregation sweep that surfaces detected issues,
// and the timer sweeps for snooze expiry and regression-watch timeout.
package issue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	inboxsvc "github.com/clientpulse/clientpulse-backend/internal/service/inbox"
	"github.com/clientpulse/clientpulse-backend/internal/timeutil"
	"github.com/clientpulse/clientpulse-backend/pkg/ctxutil"
)

// issueRepo defines the issue persistence needed by this service.
type issueRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error
	UpdateStateFrom(ctx context.Context, id uuid.UUID, from, to domain.IssueState, snoozedUntil, watchDeadline *time.Time) (bool, error)
	SetTagged(ctx context.Context, id uuid.UUID, actor string, at time.Time) error
	SetAssigned(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error
	SetSuppressed(ctx context.Context, id uuid.UUID, suppressed bool) error
	SetEscalated(ctx context.Context, id uuid.UUID, escalated bool) error
	ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error)
	ListWatchExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error)
	ListDetected(ctx context.Context) ([]*domain.Issue, error)
}

// signalCounter counts live signals for the aggregation sweep.
type signalCounter interface {
	CountUndismissed(ctx context.Context, scope domain.Scope, rule string) (int, error)
}

// proposer re-enters a regressed issue into the inbox.
type proposer interface {
	Propose(ctx context.Context, p inboxsvc.Proposal) (*domain.InboxItem, error)
}

// transitionRepo defines the audit log persistence needed by this service.
type transitionRepo interface {
	Append(ctx context.Context, rec *domain.TransitionRecord) error
}

// txManager defines the transaction manager interface needed by this service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements issue lifecycle operations.
type Service struct {
	log         *slog.Logger
	issues      issueRepo
	signals     signalCounter
	proposals   proposer
	transitions transitionRepo
	tx          txManager

	surfaceThreshold int
	watchDays        int
	tz               *time.Location
	now              func() time.Time
}

// NewService creates a new issue service instance.
func NewService(
	logger *slog.Logger,
	issues issueRepo,
	signals signalCounter,
	proposals proposer,
	transitions transitionRepo,
	tx txManager,
	surfaceThreshold int,
	watchDays int,
	tz *time.Location,
) *Service {
	return &Service{
		log:              logger.With("service", "issue"),
		issues:           issues,
		signals:          signals,
		proposals:        proposals,
		transitions:      transitions,
		tx:               tx,
		surfaceThreshold: surfaceThreshold,
		watchDays:        watchDays,
		tz:               tz,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Acknowledge moves the issue to acknowledged.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return s.userTransition(ctx, id, domain.IssueActionAcknowledge, nil, nil)
}

// Snooze hides the issue until the given time, which must be in the future.
func (s *Service) Snooze(ctx context.Context, id uuid.UUID, until time.Time) (*domain.Issue, error) {
	if !until.After(s.now()) {
		return nil, domain.NewValidationError("until", "snooze time must be in the future")
	}
	return s.userTransition(ctx, id, domain.IssueActionSnooze, &until, nil)
}

// Unsnooze returns a snoozed issue to surfaced before its timer elapses.
func (s *Service) Unsnooze(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return s.userTransition(ctx, id, domain.IssueActionUnsnooze, nil, nil)
}

// Assign hands the issue to an assignee and moves it to addressing.
// Reassignment overwrites; the tagged fields are never touched here.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, assignee string) (*domain.Issue, error) {
	if assignee == "" {
		return nil, domain.NewValidationError("assignee", "must not be empty")
	}

	iss, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := iss.Transition(domain.IssueActionAssign)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issues.SetAssigned(ctx, id, assignee, now); err != nil {
			return err
		}
		if err := s.issues.UpdateState(ctx, id, next, nil, nil); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   id,
			FromState:  iss.State.String(),
			ToState:    next.String(),
			Action:     string(domain.IssueActionAssign),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.issues.GetByID(ctx, id)
}

// MarkAwaiting moves the issue to awaiting_resolution.
func (s *Service) MarkAwaiting(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return s.userTransition(ctx, id, domain.IssueActionMarkAwaiting, nil, nil)
}

// Resolve closes out the active phase. The issue never rests in
// resolved: the same transaction advances it into regression_watch with
// the configured watch deadline, so a crash can never strand it.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	iss, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resolved, err := iss.Transition(domain.IssueActionResolve)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := timeutil.Deadline(now, s.watchDays, s.tz)
	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   id,
			FromState:  iss.State.String(),
			ToState:    resolved.String(),
			Action:     string(domain.IssueActionResolve),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		}); err != nil {
			return err
		}
		if err := s.issues.UpdateState(ctx, id, domain.IssueRegressionWatch, nil, &deadline); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   id,
			FromState:  resolved.String(),
			ToState:    domain.IssueRegressionWatch.String(),
			Action:     string(domain.IssueActionWatch),
			Reason:     domain.ReasonSystemTimer,
			Actor:      ctxutil.SystemActor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("issue resolved, watching for regression",
		"issue_id", id, "watch_deadline", deadline)
	return s.issues.GetByID(ctx, id)
}

// Escalate sets the escalation flag. Orthogonal to state.
func (s *Service) Escalate(ctx context.Context, id uuid.UUID) error {
	return s.issues.SetEscalated(ctx, id, true)
}

// Unsuppress clears the suppression flag set by an inbox dismiss.
func (s *Service) Unsuppress(ctx context.Context, id uuid.UUID) error {
	return s.issues.SetSuppressed(ctx, id, false)
}

// Get returns one issue.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return s.issues.GetByID(ctx, id)
}

// List returns issues for the read surface.
func (s *Service) List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	return s.issues.List(ctx, f)
}

// SurfaceDetected promotes detected issues whose scope has accumulated
// enough live signals to cross the surface threshold.
func (s *Service) SurfaceDetected(ctx context.Context) (int, error) {
	detected, err := s.issues.ListDetected(ctx)
	if err != nil {
		return 0, err
	}

	var surfaced int
	for _, iss := range detected {
		count, err := s.signals.CountUndismissed(ctx, iss.Scope, "")
		if err != nil {
			return surfaced, err
		}
		if count < s.surfaceThreshold {
			continue
		}
		flipped, err := s.systemTransition(ctx, iss, domain.IssueActionSurface, domain.ReasonSystemAggregation, nil, nil)
		if err != nil {
			return surfaced, err
		}
		if flipped {
			surfaced++
		}
	}

	if surfaced > 0 {
		s.log.Info("detected issues surfaced", "count", surfaced)
	}
	return surfaced, nil
}

// ExpireSnoozes returns every snoozed issue whose timer elapsed to
// surfaced. Safe to run concurrently: the state-guarded write matches
// zero rows for an issue another sweep already woke, so that issue is
// skipped without a duplicate audit row.
func (s *Service) ExpireSnoozes(ctx context.Context, now time.Time) (int, error) {
	issues, err := s.issues.ListSnoozeExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	var woken int
	for _, iss := range issues {
		flipped, err := s.systemTransition(ctx, iss, domain.IssueActionUnsnooze, domain.ReasonSystemTimer, nil, nil)
		if err != nil {
			s.log.Warn("snooze expiry skipped", "issue_id", iss.ID, "error", err)
			continue
		}
		if flipped {
			woken++
		}
	}

	if woken > 0 {
		s.log.Info("snoozed issues returned to surfaced", "count", woken)
	}
	return woken, nil
}

// CloseExpiredWatches closes regression-watch issues whose window
// elapsed with no recurrence.
func (s *Service) CloseExpiredWatches(ctx context.Context, now time.Time) (int, error) {
	issues, err := s.issues.ListWatchExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	var closed int
	for _, iss := range issues {
		flipped, err := s.systemTransition(ctx, iss, domain.IssueActionClose, domain.ReasonSystemTimer, nil, nil)
		if err != nil {
			s.log.Warn("watch close skipped", "issue_id", iss.ID, "error", err)
			continue
		}
		if flipped {
			closed++
		}
	}

	if closed > 0 {
		s.log.Info("regression watches closed", "count", closed)
	}
	return closed, nil
}

// RecordRecurrence handles a recurrence signal during the watch window:
// the issue regresses and, because its previous inbox item is terminal,
// a new one is proposed for it.
func (s *Service) RecordRecurrence(ctx context.Context, id uuid.UUID, source, rule string) (*domain.Issue, error) {
	iss, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := iss.Transition(domain.IssueActionRegress)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issues.UpdateState(ctx, id, next, nil, nil); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   id,
			FromState:  iss.State.String(),
			ToState:    next.String(),
			Action:     string(domain.IssueActionRegress),
			Reason:     domain.ReasonSystemSignal,
			Actor:      ctxutil.SystemActor,
		})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.proposals.Propose(ctx, inboxsvc.Proposal{
		Type:       domain.InboxTypeIssue,
		Underlying: domain.UnderlyingIssue(id),
		Scope:      iss.Scope,
		Source:     source,
		Rule:       rule,
		Title:      "Regressed: " + iss.Title,
	}); err != nil {
		return nil, err
	}

	s.log.Info("issue regressed", "issue_id", id, "rule", rule)
	return s.issues.GetByID(ctx, id)
}

// userTransition runs a plain user-triggered state change: one state
// write plus one audit row.
func (s *Service) userTransition(ctx context.Context, id uuid.UUID, action domain.IssueAction, snoozedUntil, watchDeadline *time.Time) (*domain.Issue, error) {
	iss, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := iss.Transition(action)
	if err != nil {
		return nil, err
	}

	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.issues.UpdateState(ctx, id, next, snoozedUntil, watchDeadline); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   id,
			FromState:  iss.State.String(),
			ToState:    next.String(),
			Action:     string(action),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.issues.GetByID(ctx, id)
}

// systemTransition runs a sweep-triggered state change with the system
// actor and the given reason code. The state-guarded write keeps sweeps
// idempotent per row: when another run already flipped the row the
// guard matches nothing, no audit row is appended, and false is
// returned so the caller does not count it.
func (s *Service) systemTransition(ctx context.Context, iss *domain.Issue, action domain.IssueAction, reason domain.TransitionReason, snoozedUntil, watchDeadline *time.Time) (bool, error) {
	next, err := iss.Transition(action)
	if err != nil {
		return false, err
	}
	var flipped bool
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		flipped, err = s.issues.UpdateStateFrom(ctx, iss.ID, iss.State, next, snoozedUntil, watchDeadline)
		if err != nil || !flipped {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   iss.ID,
			FromState:  iss.State.String(),
			ToState:    next.String(),
			Action:     string(action),
			Reason:     reason,
			Actor:      ctxutil.SystemActor,
		})
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}
