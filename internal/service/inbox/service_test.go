package inbox

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
	"github.com/clientpulse/clientpulse-backend/pkg/ctxutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
}

type fixture struct {
	items        *inboxRepoMock
	issues       *issueRepoMock
	signals      *signalRepoMock
	suppressions *suppressionRepoMock
	transitions  *transitionRepoMock
	tx           *txManagerMock
	svc          *Service
}

func newFixture() *fixture {
	f := &fixture{
		items:        &inboxRepoMock{},
		issues:       &issueRepoMock{},
		signals:      &signalRepoMock{},
		suppressions: &suppressionRepoMock{},
		transitions:  &transitionRepoMock{},
		tx:           &txManagerMock{},
	}
	f.svc = NewService(testLogger(), f.items, f.issues, f.signals, f.suppressions, f.transitions, f.tx)
	f.svc.now = fixedNow
	return f
}

func proposalFixture() Proposal {
	clientID := uuid.New()
	return Proposal{
		Type:       domain.InboxTypeSignal,
		Underlying: domain.UnderlyingSignal(uuid.New()),
		Scope:      domain.Scope{ClientID: &clientID},
		Source:     "email",
		Rule:       "negative_sentiment",
		Title:      "Negative sentiment detected",
	}
}

func TestPropose_Creates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	p := proposalFixture()

	f.suppressions.GetLiveFunc = func(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error) {
		return nil, domain.ErrNotFound
	}
	f.items.CreateFunc = func(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error) {
		assert.Equal(t, domain.InboxProposed, it.State)
		assert.NotEmpty(t, it.SuppressionKey)
		out := *it
		out.ID = uuid.New()
		return &out, nil
	}

	created, err := f.svc.Propose(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, 1, f.items.createCalls)
}

func TestPropose_SuppressedByLiveRule(t *testing.T) {
	t.Parallel()

	f := newFixture()
	p := proposalFixture()

	f.suppressions.GetLiveFunc = func(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error) {
		return &domain.SuppressionRule{Key: key, ItemType: p.Type, ExpiresAt: now.Add(time.Hour)}, nil
	}

	created, err := f.svc.Propose(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Zero(t, f.items.createCalls)
}

func TestPropose_ActiveDuplicateReturnsExisting(t *testing.T) {
	t.Parallel()

	f := newFixture()
	p := proposalFixture()
	existing := &domain.InboxItem{ID: uuid.New(), State: domain.InboxProposed, Underlying: p.Underlying}

	f.suppressions.GetLiveFunc = func(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error) {
		return nil, domain.ErrNotFound
	}
	f.items.CreateFunc = func(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error) {
		return nil, domain.ErrAlreadyExists
	}
	f.items.GetActiveByUnderlyingFunc = func(ctx context.Context, u domain.Underlying) (*domain.InboxItem, error) {
		assert.Equal(t, p.Underlying, u)
		return existing, nil
	}

	got, err := f.svc.Propose(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, existing, got)
}

func TestTag_ConfirmsIssueAndLinks(t *testing.T) {
	t.Parallel()

	f := newFixture()
	issueID := uuid.New()
	itemID := uuid.New()
	item := &domain.InboxItem{
		ID:         itemID,
		Type:       domain.InboxTypeIssue,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingIssue(issueID),
	}

	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.issues.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
		return &domain.Issue{ID: issueID, State: domain.IssueSurfaced}, nil
	}
	f.issues.SetTaggedFunc = func(ctx context.Context, id uuid.UUID, actor string, at time.Time) error {
		assert.Equal(t, issueID, id)
		assert.Equal(t, "alice", actor)
		return nil
	}
	f.issues.UpdateStateFunc = func(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error {
		assert.Equal(t, domain.IssueAcknowledged, state)
		return nil
	}
	f.items.MarkLinkedFunc = func(ctx context.Context, id, linkedIssueID uuid.UUID, at time.Time) error {
		assert.Equal(t, itemID, id)
		assert.Equal(t, issueID, linkedIssueID)
		return nil
	}

	ctx := ctxutil.WithActor(context.Background(), "alice")
	_, err := f.svc.Tag(ctx, itemID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.issues.setTaggedCalls)
	assert.Equal(t, 1, f.tx.calls)
	// Both the issue's acknowledge and the item's terminal transition land
	// in the audit log.
	require.Len(t, f.transitions.records, 2)
	assert.Equal(t, domain.EntityTypeIssue, f.transitions.records[0].EntityType)
	assert.Equal(t, domain.EntityTypeInboxItem, f.transitions.records[1].EntityType)
	assert.Equal(t, domain.ReasonUserAction, f.transitions.records[1].Reason)
}

func TestTag_AcknowledgedIssueKeepsState(t *testing.T) {
	t.Parallel()

	f := newFixture()
	issueID := uuid.New()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeIssue,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingIssue(issueID),
	}

	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.issues.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
		// Addressing has no acknowledge edge; the tag still links.
		return &domain.Issue{ID: issueID, State: domain.IssueAddressing}, nil
	}
	f.issues.SetTaggedFunc = func(ctx context.Context, id uuid.UUID, actor string, at time.Time) error {
		return nil
	}
	f.items.MarkLinkedFunc = func(ctx context.Context, id, linkedIssueID uuid.UUID, at time.Time) error {
		return nil
	}

	_, err := f.svc.Tag(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Zero(t, f.issues.updateStateCalls)
	// Only the inbox item's transition is recorded.
	require.Len(t, f.transitions.records, 1)
	assert.Equal(t, domain.EntityTypeInboxItem, f.transitions.records[0].EntityType)
}

func TestTag_SignalBackedRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeSignal,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingSignal(uuid.New()),
	}
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}

	_, err := f.svc.Tag(context.Background(), item.ID)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTag_TerminalItemRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeIssue,
		State:      domain.InboxDismissed,
		Underlying: domain.UnderlyingIssue(uuid.New()),
	}
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}

	_, err := f.svc.Tag(context.Background(), item.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, f.tx.calls)
}

func TestAssign_NeverTouchesTaggedFields(t *testing.T) {
	t.Parallel()

	f := newFixture()
	issueID := uuid.New()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeIssue,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingIssue(issueID),
	}

	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.issues.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
		return &domain.Issue{ID: issueID, State: domain.IssueSurfaced}, nil
	}
	f.issues.SetAssignedFunc = func(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error {
		assert.Equal(t, "bob", assignee)
		return nil
	}
	f.issues.UpdateStateFunc = func(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error {
		assert.Equal(t, domain.IssueAddressing, state)
		return nil
	}
	f.items.MarkLinkedFunc = func(ctx context.Context, id, linkedIssueID uuid.UUID, at time.Time) error {
		return nil
	}

	_, err := f.svc.Assign(context.Background(), item.ID, "bob")
	require.NoError(t, err)
	assert.Zero(t, f.issues.setTaggedCalls)
}

func TestSnooze_PastTimeRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Snooze(context.Background(), uuid.New(), fixedNow().Add(-time.Hour))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDismiss_IssueBacked(t *testing.T) {
	t.Parallel()

	f := newFixture()
	issueID := uuid.New()
	item := &domain.InboxItem{
		ID:             uuid.New(),
		Type:           domain.InboxTypeIssue,
		State:          domain.InboxProposed,
		Underlying:     domain.UnderlyingIssue(issueID),
		SuppressionKey: "abc123",
	}

	var suppressedIssue, ruleStored bool
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.items.MarkDismissedFunc = func(ctx context.Context, id uuid.UUID, at time.Time) error {
		return nil
	}
	f.suppressions.UpsertFunc = func(ctx context.Context, rule *domain.SuppressionRule) error {
		ruleStored = true
		assert.Equal(t, "abc123", rule.Key)
		assert.Equal(t, fixedNow().Add(domain.SuppressionTTLIssue), rule.ExpiresAt)
		return nil
	}
	f.issues.SetSuppressedFunc = func(ctx context.Context, id uuid.UUID, suppressed bool) error {
		suppressedIssue = true
		assert.Equal(t, issueID, id)
		assert.True(t, suppressed)
		return nil
	}

	_, err := f.svc.Dismiss(context.Background(), item.ID)
	require.NoError(t, err)

	assert.True(t, ruleStored)
	assert.True(t, suppressedIssue)
	// Dismissing flags the issue; its lifecycle state is untouched.
	assert.Zero(t, f.issues.updateStateCalls)
	assert.Equal(t, 1, f.tx.calls)
}

func TestDismiss_SignalBackedUsesSignalTTL(t *testing.T) {
	t.Parallel()

	f := newFixture()
	sigID := uuid.New()
	item := &domain.InboxItem{
		ID:             uuid.New(),
		Type:           domain.InboxTypeSignal,
		State:          domain.InboxProposed,
		Underlying:     domain.UnderlyingSignal(sigID),
		SuppressionKey: "def456",
	}

	var dismissedSignal bool
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.items.MarkDismissedFunc = func(ctx context.Context, id uuid.UUID, at time.Time) error {
		return nil
	}
	f.suppressions.UpsertFunc = func(ctx context.Context, rule *domain.SuppressionRule) error {
		assert.Equal(t, fixedNow().Add(domain.SuppressionTTLSignal), rule.ExpiresAt)
		return nil
	}
	f.signals.SetDismissedFunc = func(ctx context.Context, id uuid.UUID, dismissed bool) error {
		dismissedSignal = true
		assert.Equal(t, sigID, id)
		assert.True(t, dismissed)
		return nil
	}

	_, err := f.svc.Dismiss(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, dismissedSignal)
}

func TestSelect_AmbiguousOnly(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeSignal,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingSignal(uuid.New()),
	}
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}

	_, err := f.svc.Select(context.Background(), item.ID, domain.Scope{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSelect_ResolvesScopeWithoutStateChange(t *testing.T) {
	t.Parallel()

	f := newFixture()
	sigID := uuid.New()
	engagementID := uuid.New()
	item := &domain.InboxItem{
		ID:         uuid.New(),
		Type:       domain.InboxTypeAmbiguous,
		State:      domain.InboxProposed,
		Underlying: domain.UnderlyingSignal(sigID),
	}

	var resolved bool
	f.items.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
		return item, nil
	}
	f.signals.ResolveScopeFunc = func(ctx context.Context, id uuid.UUID, scope domain.Scope) error {
		resolved = true
		assert.Equal(t, sigID, id)
		require.NotNil(t, scope.EngagementID)
		assert.Equal(t, engagementID, *scope.EngagementID)
		return nil
	}

	_, err := f.svc.Select(context.Background(), item.ID, domain.Scope{EngagementID: &engagementID})
	require.NoError(t, err)
	assert.True(t, resolved)
	require.Len(t, f.transitions.records, 1)
	assert.Equal(t, domain.InboxProposed.String(), f.transitions.records[0].FromState)
	assert.Equal(t, domain.InboxProposed.String(), f.transitions.records[0].ToState)
}

func TestExpireSnoozes_SkipsAlreadyFlipped(t *testing.T) {
	t.Parallel()

	f := newFixture()
	flipped := uuid.New()
	raced := uuid.New()

	f.items.ListSnoozeExpiredFunc = func(ctx context.Context, now time.Time) ([]*domain.InboxItem, error) {
		return []*domain.InboxItem{
			{ID: flipped, State: domain.InboxSnoozed},
			{ID: raced, State: domain.InboxSnoozed},
		}, nil
	}
	f.items.ReturnToProposedFunc = func(ctx context.Context, id uuid.UUID) (bool, error) {
		// The second row was already woken by a concurrent sweep.
		return id == flipped, nil
	}

	woken, err := f.svc.ExpireSnoozes(context.Background(), fixedNow())
	require.NoError(t, err)
	assert.Equal(t, 1, woken)
	require.Len(t, f.transitions.records, 1)
	assert.Equal(t, flipped, f.transitions.records[0].EntityID)
	assert.Equal(t, ctxutil.SystemActor, f.transitions.records[0].Actor)
	assert.Equal(t, domain.ReasonSystemTimer, f.transitions.records[0].Reason)
}
