package issue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	inboxsvc "github.com/clientpulse/clientpulse-backend/internal/service/inbox"
)

var (
	_ issueRepo      = &issueRepoMock{}
	_ signalCounter  = &signalCounterMock{}
	_ proposer       = &proposerMock{}
	_ transitionRepo = &transitionRepoMock{}
	_ txManager      = &txManagerMock{}
)

type issueRepoMock struct {
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	ListFunc              func(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error)
	UpdateStateFunc       func(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error
	UpdateStateFromFunc   func(ctx context.Context, id uuid.UUID, from, to domain.IssueState, snoozedUntil, watchDeadline *time.Time) (bool, error)
	SetTaggedFunc         func(ctx context.Context, id uuid.UUID, actor string, at time.Time) error
	SetAssignedFunc       func(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error
	SetSuppressedFunc     func(ctx context.Context, id uuid.UUID, suppressed bool) error
	SetEscalatedFunc      func(ctx context.Context, id uuid.UUID, escalated bool) error
	ListSnoozeExpiredFunc func(ctx context.Context, now time.Time) ([]*domain.Issue, error)
	ListWatchExpiredFunc  func(ctx context.Context, now time.Time) ([]*domain.Issue, error)
	ListDetectedFunc      func(ctx context.Context) ([]*domain.Issue, error)

	stateWrites []domain.IssueState
}

func (m *issueRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *issueRepoMock) List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	return m.ListFunc(ctx, f)
}

func (m *issueRepoMock) UpdateState(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error {
	m.stateWrites = append(m.stateWrites, state)
	return m.UpdateStateFunc(ctx, id, state, snoozedUntil, watchDeadline)
}

// UpdateStateFrom records the write only when it flips, like the real
// state-guarded UPDATE. Without an override the guard always matches.
func (m *issueRepoMock) UpdateStateFrom(ctx context.Context, id uuid.UUID, from, to domain.IssueState, snoozedUntil, watchDeadline *time.Time) (bool, error) {
	if m.UpdateStateFromFunc != nil {
		flipped, err := m.UpdateStateFromFunc(ctx, id, from, to, snoozedUntil, watchDeadline)
		if flipped {
			m.stateWrites = append(m.stateWrites, to)
		}
		return flipped, err
	}
	m.stateWrites = append(m.stateWrites, to)
	return true, nil
}

func (m *issueRepoMock) SetTagged(ctx context.Context, id uuid.UUID, actor string, at time.Time) error {
	return m.SetTaggedFunc(ctx, id, actor, at)
}

func (m *issueRepoMock) SetAssigned(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error {
	return m.SetAssignedFunc(ctx, id, assignee, at)
}

func (m *issueRepoMock) SetSuppressed(ctx context.Context, id uuid.UUID, suppressed bool) error {
	return m.SetSuppressedFunc(ctx, id, suppressed)
}

func (m *issueRepoMock) SetEscalated(ctx context.Context, id uuid.UUID, escalated bool) error {
	return m.SetEscalatedFunc(ctx, id, escalated)
}

func (m *issueRepoMock) ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error) {
	return m.ListSnoozeExpiredFunc(ctx, now)
}

func (m *issueRepoMock) ListWatchExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error) {
	return m.ListWatchExpiredFunc(ctx, now)
}

func (m *issueRepoMock) ListDetected(ctx context.Context) ([]*domain.Issue, error) {
	return m.ListDetectedFunc(ctx)
}

type signalCounterMock struct {
	CountUndismissedFunc func(ctx context.Context, scope domain.Scope, rule string) (int, error)
}

func (m *signalCounterMock) CountUndismissed(ctx context.Context, scope domain.Scope, rule string) (int, error) {
	return m.CountUndismissedFunc(ctx, scope, rule)
}

type proposerMock struct {
	ProposeFunc func(ctx context.Context, p inboxsvc.Proposal) (*domain.InboxItem, error)

	proposals []inboxsvc.Proposal
}

func (m *proposerMock) Propose(ctx context.Context, p inboxsvc.Proposal) (*domain.InboxItem, error) {
	m.proposals = append(m.proposals, p)
	return m.ProposeFunc(ctx, p)
}

type transitionRepoMock struct {
	records []*domain.TransitionRecord
}

func (m *transitionRepoMock) Append(ctx context.Context, rec *domain.TransitionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type txManagerMock struct {
	calls int
}

func (m *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}
