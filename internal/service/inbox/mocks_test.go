package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

var (
	_ inboxRepo       = &inboxRepoMock{}
	_ issueRepo       = &issueRepoMock{}
	_ signalRepo      = &signalRepoMock{}
	_ suppressionRepo = &suppressionRepoMock{}
	_ transitionRepo  = &transitionRepoMock{}
	_ txManager       = &txManagerMock{}
)

type inboxRepoMock struct {
	CreateFunc                func(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error)
	GetByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error)
	GetActiveByUnderlyingFunc func(ctx context.Context, u domain.Underlying) (*domain.InboxItem, error)
	ListFunc                  func(ctx context.Context, f domain.InboxFilter) ([]*domain.InboxItem, error)
	MarkLinkedFunc            func(ctx context.Context, id, issueID uuid.UUID, at time.Time) error
	MarkDismissedFunc         func(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkSnoozedFunc           func(ctx context.Context, id uuid.UUID, until time.Time) error
	ReturnToProposedFunc      func(ctx context.Context, id uuid.UUID) (bool, error)
	ListSnoozeExpiredFunc     func(ctx context.Context, now time.Time) ([]*domain.InboxItem, error)

	createCalls int
}

func (m *inboxRepoMock) Create(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error) {
	m.createCalls++
	return m.CreateFunc(ctx, it)
}

func (m *inboxRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *inboxRepoMock) GetActiveByUnderlying(ctx context.Context, u domain.Underlying) (*domain.InboxItem, error) {
	return m.GetActiveByUnderlyingFunc(ctx, u)
}

func (m *inboxRepoMock) List(ctx context.Context, f domain.InboxFilter) ([]*domain.InboxItem, error) {
	return m.ListFunc(ctx, f)
}

func (m *inboxRepoMock) MarkLinked(ctx context.Context, id, issueID uuid.UUID, at time.Time) error {
	return m.MarkLinkedFunc(ctx, id, issueID, at)
}

func (m *inboxRepoMock) MarkDismissed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.MarkDismissedFunc(ctx, id, at)
}

func (m *inboxRepoMock) MarkSnoozed(ctx context.Context, id uuid.UUID, until time.Time) error {
	return m.MarkSnoozedFunc(ctx, id, until)
}

func (m *inboxRepoMock) ReturnToProposed(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.ReturnToProposedFunc(ctx, id)
}

func (m *inboxRepoMock) ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.InboxItem, error) {
	return m.ListSnoozeExpiredFunc(ctx, now)
}

type issueRepoMock struct {
	CreateFunc        func(ctx context.Context, i *domain.Issue) (*domain.Issue, error)
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	UpdateStateFunc   func(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error
	SetTaggedFunc     func(ctx context.Context, id uuid.UUID, actor string, at time.Time) error
	SetAssignedFunc   func(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error
	SetSuppressedFunc func(ctx context.Context, id uuid.UUID, suppressed bool) error

	setTaggedCalls   int
	updateStateCalls int
}

func (m *issueRepoMock) Create(ctx context.Context, i *domain.Issue) (*domain.Issue, error) {
	return m.CreateFunc(ctx, i)
}

func (m *issueRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *issueRepoMock) UpdateState(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error {
	m.updateStateCalls++
	return m.UpdateStateFunc(ctx, id, state, snoozedUntil, watchDeadline)
}

func (m *issueRepoMock) SetTagged(ctx context.Context, id uuid.UUID, actor string, at time.Time) error {
	m.setTaggedCalls++
	return m.SetTaggedFunc(ctx, id, actor, at)
}

func (m *issueRepoMock) SetAssigned(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error {
	return m.SetAssignedFunc(ctx, id, assignee, at)
}

func (m *issueRepoMock) SetSuppressed(ctx context.Context, id uuid.UUID, suppressed bool) error {
	return m.SetSuppressedFunc(ctx, id, suppressed)
}

type signalRepoMock struct {
	SetDismissedFunc func(ctx context.Context, id uuid.UUID, dismissed bool) error
	ResolveScopeFunc func(ctx context.Context, id uuid.UUID, scope domain.Scope) error
}

func (m *signalRepoMock) SetDismissed(ctx context.Context, id uuid.UUID, dismissed bool) error {
	return m.SetDismissedFunc(ctx, id, dismissed)
}

func (m *signalRepoMock) ResolveScope(ctx context.Context, id uuid.UUID, scope domain.Scope) error {
	return m.ResolveScopeFunc(ctx, id, scope)
}

type suppressionRepoMock struct {
	UpsertFunc  func(ctx context.Context, rule *domain.SuppressionRule) error
	GetLiveFunc func(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error)
	DeleteFunc  func(ctx context.Context, key string) error
}

func (m *suppressionRepoMock) Upsert(ctx context.Context, rule *domain.SuppressionRule) error {
	return m.UpsertFunc(ctx, rule)
}

func (m *suppressionRepoMock) GetLive(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error) {
	return m.GetLiveFunc(ctx, key, now)
}

func (m *suppressionRepoMock) Delete(ctx context.Context, key string) error {
	return m.DeleteFunc(ctx, key)
}

type transitionRepoMock struct {
	records []*domain.TransitionRecord
}

func (m *transitionRepoMock) Append(ctx context.Context, rec *domain.TransitionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

// txManagerMock runs the callback directly; the transactional behavior
// itself is covered by the repository integration tests.
type txManagerMock struct {
	calls int
}

func (m *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}
