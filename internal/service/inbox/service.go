// Package inbox orchestrates the inbox item lifecycle: proposal dedup
// against the live suppression rule set, the terminal actions that span
// the item, its underlying issue or signal, and the suppression table in
// one transaction, and the snooze-expiry sweep.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/pkg/ctxutil"
)

// inboxRepo defines the inbox item persistence needed by this service.
type inboxRepo interface {
	Create(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error)
	GetActiveByUnderlying(ctx context.Context, u domain.Underlying) (*domain.InboxItem, error)
	List(ctx context.Context, f domain.InboxFilter) ([]*domain.InboxItem, error)
	MarkLinked(ctx context.Context, id, issueID uuid.UUID, at time.Time) error
	MarkDismissed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkSnoozed(ctx context.Context, id uuid.UUID, until time.Time) error
	ReturnToProposed(ctx context.Context, id uuid.UUID) (bool, error)
	ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.InboxItem, error)
}

// issueRepo defines the issue persistence needed by this service.
type issueRepo interface {
	Create(ctx context.Context, i *domain.Issue) (*domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error
	SetTagged(ctx context.Context, id uuid.UUID, actor string, at time.Time) error
	SetAssigned(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error
	SetSuppressed(ctx context.Context, id uuid.UUID, suppressed bool) error
}

// signalRepo defines the signal persistence needed by this service.
type signalRepo interface {
	SetDismissed(ctx context.Context, id uuid.UUID, dismissed bool) error
	ResolveScope(ctx context.Context, id uuid.UUID, scope domain.Scope) error
}

// suppressionRepo defines the suppression rule persistence needed by
// this service.
type suppressionRepo interface {
	Upsert(ctx context.Context, rule *domain.SuppressionRule) error
	GetLive(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error)
	Delete(ctx context.Context, key string) error
}

// transitionRepo defines the audit log persistence needed by this service.
type transitionRepo interface {
	Append(ctx context.Context, rec *domain.TransitionRecord) error
}

// txManager defines the transaction manager interface needed by this service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements inbox item lifecycle operations.
type Service struct {
	log          *slog.Logger
	items        inboxRepo
	issues       issueRepo
	signals      signalRepo
	suppressions suppressionRepo
	transitions  transitionRepo
	tx           txManager
	now          func() time.Time
}

// NewService creates a new inbox service instance.
func NewService(
	logger *slog.Logger,
	items inboxRepo,
	issues issueRepo,
	signals signalRepo,
	suppressions suppressionRepo,
	transitions transitionRepo,
	tx txManager,
) *Service {
	return &Service{
		log:          logger.With("service", "inbox"),
		items:        items,
		issues:       issues,
		signals:      signals,
		suppressions: suppressions,
		transitions:  transitions,
		tx:           tx,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Proposal is the input to Propose: one detector finding to surface.
type Proposal struct {
	Type       domain.InboxItemType
	Underlying domain.Underlying
	Scope      domain.Scope
	Source     string
	Rule       string
	Title      string
}

// suppressionScope picks the most specific scoping dimension for the
// dedup key.
func suppressionScope(s domain.Scope) string {
	switch {
	case s.EngagementID != nil:
		return s.EngagementID.String()
	case s.BrandID != nil:
		return s.BrandID.String()
	}
	return ""
}

// Propose inserts a new proposed inbox item. It is a no-op when a live
// suppression rule matches the proposal's identity, or when an active
// item for the same underlying entity already exists; in the latter case
// the existing item is returned. Nil item with nil error means the
// proposal was suppressed.
func (s *Service) Propose(ctx context.Context, p Proposal) (*domain.InboxItem, error) {
	if !p.Type.IsValid() {
		return nil, domain.NewValidationError("type", "unknown inbox item type")
	}
	if p.Underlying.IsZero() {
		return nil, domain.NewValidationError("underlying", "missing underlying entity")
	}

	now := s.now()
	key := domain.SuppressionKey(domain.SuppressionKeyInput{
		ItemType: p.Type,
		ClientID: p.Scope.ClientID,
		Scope:    suppressionScope(p.Scope),
		Source:   p.Source,
		Rule:     p.Rule,
	})

	// Always the live rule set, never a cached flag: revoking a rule
	// re-enables proposals immediately.
	if _, err := s.suppressions.GetLive(ctx, key, now); err == nil {
		s.log.Debug("proposal suppressed", "key", key, "rule", p.Rule)
		return nil, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created, err := s.items.Create(ctx, &domain.InboxItem{
		Type:           p.Type,
		State:          domain.InboxProposed,
		Underlying:     p.Underlying,
		Scope:          p.Scope,
		Source:         p.Source,
		Rule:           p.Rule,
		Title:          p.Title,
		SuppressionKey: key,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent detector won the race; the dedup invariant
			// holds, return the active item.
			return s.items.GetActiveByUnderlying(ctx, p.Underlying)
		}
		return nil, err
	}

	s.log.Info("inbox item proposed",
		"item_id", created.ID, "type", created.Type.String(), "rule", created.Rule)
	return created, nil
}

// Tag confirms an issue-backed item: the underlying issue is tagged
// (first confirmation wins), acknowledged when its state allows, and the
// item moves to linked_to_issue. One transaction.
func (s *Service) Tag(ctx context.Context, itemID uuid.UUID) (*domain.InboxItem, error) {
	return s.linkAction(ctx, itemID, domain.InboxActionTag, func(ctx context.Context, it *domain.InboxItem, now time.Time, actor string) (uuid.UUID, error) {
		issueID, ok := it.Underlying.IssueID()
		if !ok {
			return uuid.Nil, domain.NewValidationError("underlying", "tag requires an issue-backed item")
		}
		if err := s.issues.SetTagged(ctx, issueID, actor, now); err != nil {
			return uuid.Nil, err
		}
		if err := s.advanceIssue(ctx, issueID, domain.IssueActionAcknowledge, actor); err != nil {
			return uuid.Nil, err
		}
		return issueID, nil
	})
}

// Assign confirms an issue-backed item and hands it to an assignee: the
// issue moves to addressing, tagged fields stay untouched if already
// set, and the item moves to linked_to_issue. One transaction.
func (s *Service) Assign(ctx context.Context, itemID uuid.UUID, assignee string) (*domain.InboxItem, error) {
	if assignee == "" {
		return nil, domain.NewValidationError("assignee", "must not be empty")
	}
	return s.linkAction(ctx, itemID, domain.InboxActionAssign, func(ctx context.Context, it *domain.InboxItem, now time.Time, actor string) (uuid.UUID, error) {
		issueID, ok := it.Underlying.IssueID()
		if !ok {
			return uuid.Nil, domain.NewValidationError("underlying", "assign requires an issue-backed item")
		}
		if err := s.issues.SetAssigned(ctx, issueID, assignee, now); err != nil {
			return uuid.Nil, err
		}
		if err := s.advanceIssue(ctx, issueID, domain.IssueActionAssign, actor); err != nil {
			return uuid.Nil, err
		}
		return issueID, nil
	})
}

// Link attaches a signal-backed item to an existing issue.
func (s *Service) Link(ctx context.Context, itemID, issueID uuid.UUID) (*domain.InboxItem, error) {
	return s.linkAction(ctx, itemID, domain.InboxActionLink, func(ctx context.Context, it *domain.InboxItem, now time.Time, actor string) (uuid.UUID, error) {
		if _, err := s.issues.GetByID(ctx, issueID); err != nil {
			return uuid.Nil, err
		}
		if sigID, ok := it.Underlying.SignalID(); ok {
			if err := s.signals.SetDismissed(ctx, sigID, true); err != nil {
				return uuid.Nil, err
			}
		}
		return issueID, nil
	})
}

// CreateIssueInput carries the fields for an issue created from an
// inbox item.
type CreateIssueInput struct {
	Type     domain.IssueType
	Severity domain.IssueSeverity
	Title    string
}

// CreateIssue promotes an item into a brand-new issue. The issue is
// born detected and immediately surfaced by the creating user; the item
// moves to linked_to_issue. One transaction.
func (s *Service) CreateIssue(ctx context.Context, itemID uuid.UUID, in CreateIssueInput) (*domain.InboxItem, error) {
	if !in.Type.IsValid() {
		return nil, domain.NewValidationError("type", "unknown issue type")
	}
	if !in.Severity.IsValid() {
		return nil, domain.NewValidationError("severity", "unknown issue severity")
	}
	if in.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	return s.linkAction(ctx, itemID, domain.InboxActionCreate, func(ctx context.Context, it *domain.InboxItem, now time.Time, actor string) (uuid.UUID, error) {
		created, err := s.issues.Create(ctx, &domain.Issue{
			Type:     in.Type,
			Severity: in.Severity,
			State:    domain.IssueDetected,
			Scope:    it.Scope,
			Title:    in.Title,
		})
		if err != nil {
			return uuid.Nil, err
		}
		if err := s.issues.UpdateState(ctx, created.ID, domain.IssueSurfaced, nil, nil); err != nil {
			return uuid.Nil, err
		}
		if err := s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeIssue,
			EntityID:   created.ID,
			FromState:  domain.IssueDetected.String(),
			ToState:    domain.IssueSurfaced.String(),
			Action:     string(domain.IssueActionSurface),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		}); err != nil {
			return uuid.Nil, err
		}
		if sigID, ok := it.Underlying.SignalID(); ok {
			if err := s.signals.SetDismissed(ctx, sigID, true); err != nil {
				return uuid.Nil, err
			}
		}
		return created.ID, nil
	})
}

// Snooze hides the item until the given time, which must be in the future.
func (s *Service) Snooze(ctx context.Context, itemID uuid.UUID, until time.Time) (*domain.InboxItem, error) {
	now := s.now()
	if !until.After(now) {
		return nil, domain.NewValidationError("until", "snooze time must be in the future")
	}

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	next, err := it.Transition(domain.InboxActionSnooze)
	if err != nil {
		return nil, err
	}

	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.items.MarkSnoozed(ctx, itemID, until); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeInboxItem,
			EntityID:   itemID,
			FromState:  it.State.String(),
			ToState:    next.String(),
			Action:     string(domain.InboxActionSnooze),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, itemID)
}

// Dismiss terminally rejects the item: a suppression rule with the
// item-type TTL fences identical future proposals, and the underlying
// issue is flagged suppressed (no state change) or the underlying
// signal marked dismissed. One transaction.
func (s *Service) Dismiss(ctx context.Context, itemID uuid.UUID) (*domain.InboxItem, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	next, err := it.Transition(domain.InboxActionDismiss)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.items.MarkDismissed(ctx, itemID, now); err != nil {
			return err
		}
		if err := s.suppressions.Upsert(ctx, &domain.SuppressionRule{
			Key:       it.SuppressionKey,
			ItemType:  it.Type,
			ExpiresAt: now.Add(domain.SuppressionTTL(it.Type)),
		}); err != nil {
			return err
		}
		if issueID, ok := it.Underlying.IssueID(); ok {
			if err := s.issues.SetSuppressed(ctx, issueID, true); err != nil {
				return err
			}
		}
		if sigID, ok := it.Underlying.SignalID(); ok {
			if err := s.signals.SetDismissed(ctx, sigID, true); err != nil {
				return err
			}
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeInboxItem,
			EntityID:   itemID,
			FromState:  it.State.String(),
			ToState:    next.String(),
			Action:     string(domain.InboxActionDismiss),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inbox item dismissed", "item_id", itemID, "suppression_key", it.SuppressionKey)
	return s.items.GetByID(ctx, itemID)
}

// Select resolves an ambiguous item's underlying signal to one scope.
// The item stays proposed; the select is still recorded in the audit log.
func (s *Service) Select(ctx context.Context, itemID uuid.UUID, scope domain.Scope) (*domain.InboxItem, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.Type != domain.InboxTypeAmbiguous {
		return nil, domain.NewValidationError("type", "select applies to ambiguous items only")
	}
	if it.State != domain.InboxProposed {
		return nil, domain.NewInvalidTransition(domain.EntityTypeInboxItem, it.State.String(), string(domain.InboxActionSelect))
	}
	sigID, ok := it.Underlying.SignalID()
	if !ok {
		return nil, domain.NewValidationError("underlying", "ambiguous items wrap a signal")
	}

	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.signals.ResolveScope(ctx, sigID, scope); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeInboxItem,
			EntityID:   itemID,
			FromState:  it.State.String(),
			ToState:    it.State.String(),
			Action:     string(domain.InboxActionSelect),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, itemID)
}

// ExpireSnoozes returns every snoozed item whose timer elapsed to
// proposed. Idempotent per row: a concurrent sweep that already flipped
// a row is skipped without an extra audit entry.
func (s *Service) ExpireSnoozes(ctx context.Context, now time.Time) (int, error) {
	items, err := s.items.ListSnoozeExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	var woken int
	for _, it := range items {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			changed, err := s.items.ReturnToProposed(ctx, it.ID)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			woken++
			return s.transitions.Append(ctx, &domain.TransitionRecord{
				EntityType: domain.EntityTypeInboxItem,
				EntityID:   it.ID,
				FromState:  domain.InboxSnoozed.String(),
				ToState:    domain.InboxProposed.String(),
				Action:     string(domain.InboxActionUnsnooze),
				Reason:     domain.ReasonSystemTimer,
				Actor:      ctxutil.SystemActor,
			})
		})
		if err != nil {
			return woken, err
		}
	}

	if woken > 0 {
		s.log.Info("snoozed inbox items returned to proposed", "count", woken)
	}
	return woken, nil
}

// RevokeSuppression deletes a rule, immediately re-enabling proposals
// with its key.
func (s *Service) RevokeSuppression(ctx context.Context, key string) error {
	if err := s.suppressions.Delete(ctx, key); err != nil {
		return err
	}
	s.log.Info("suppression rule revoked", "key", key)
	return nil
}

// List returns inbox items for the read surface.
func (s *Service) List(ctx context.Context, f domain.InboxFilter) ([]*domain.InboxItem, error) {
	return s.items.List(ctx, f)
}

// linkAction runs the shared shape of Tag/Assign/Link/CreateIssue: the
// action-specific issue writes plus the item's terminal transition, in
// one transaction.
func (s *Service) linkAction(
	ctx context.Context,
	itemID uuid.UUID,
	action domain.InboxAction,
	fn func(ctx context.Context, it *domain.InboxItem, now time.Time, actor string) (uuid.UUID, error),
) (*domain.InboxItem, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	next, err := it.Transition(action)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actor := ctxutil.ActorFromCtx(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		issueID, err := fn(ctx, it, now, actor)
		if err != nil {
			return err
		}
		if err := s.items.MarkLinked(ctx, itemID, issueID, now); err != nil {
			return err
		}
		return s.transitions.Append(ctx, &domain.TransitionRecord{
			EntityType: domain.EntityTypeInboxItem,
			EntityID:   itemID,
			FromState:  it.State.String(),
			ToState:    next.String(),
			Action:     string(action),
			Reason:     domain.ReasonUserAction,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, itemID)
}

// advanceIssue applies a lifecycle action to the underlying issue when
// its current state allows it. An illegal pair is not an error here: a
// second confirmation of an already-acknowledged issue still links the
// item, it just leaves the issue state alone.
func (s *Service) advanceIssue(ctx context.Context, issueID uuid.UUID, action domain.IssueAction, actor string) error {
	iss, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return err
	}
	next, err := iss.Transition(action)
	if err != nil {
		return nil
	}
	if err := s.issues.UpdateState(ctx, issueID, next, nil, nil); err != nil {
		return err
	}
	return s.transitions.Append(ctx, &domain.TransitionRecord{
		EntityType: domain.EntityTypeIssue,
		EntityID:   issueID,
		FromState:  iss.State.String(),
		ToState:    next.String(),
		Action:     string(action),
		Reason:     domain.ReasonUserAction,
		Actor:      actor,
	})
}
