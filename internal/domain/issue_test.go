package domain

import (
	"errors"
	"testing"
	"time"
)

func TestIssue_Transition_LegalPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from   IssueState
		action IssueAction
		want   IssueState
	}{
		{IssueDetected, IssueActionSurface, IssueSurfaced},
		{IssueSurfaced, IssueActionAcknowledge, IssueAcknowledged},
		{IssueSurfaced, IssueActionSnooze, IssueSnoozed},
		{IssueSurfaced, IssueActionAssign, IssueAddressing},
		{IssueSnoozed, IssueActionUnsnooze, IssueSurfaced},
		{IssueAcknowledged, IssueActionMarkAwaiting, IssueAwaitingResolution},
		{IssueAddressing, IssueActionResolve, IssueResolved},
		{IssueAwaitingResolution, IssueActionResolve, IssueResolved},
		{IssueResolved, IssueActionWatch, IssueRegressionWatch},
		{IssueRegressionWatch, IssueActionClose, IssueClosed},
		{IssueRegressionWatch, IssueActionRegress, IssueRegressed},
		{IssueRegressed, IssueActionAcknowledge, IssueAcknowledged},
		{IssueRegressed, IssueActionResolve, IssueResolved},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			t.Parallel()
			iss := &Issue{State: tt.from}
			got, err := iss.Transition(tt.action)
			if err != nil {
				t.Fatalf("Transition(%s): unexpected error: %v", tt.action, err)
			}
			if got != tt.want {
				t.Errorf("Transition(%s) = %s, want %s", tt.action, got, tt.want)
			}
		})
	}
}

func TestIssue_Transition_IllegalPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from   IssueState
		action IssueAction
	}{
		{IssueDetected, IssueActionResolve},
		{IssueDetected, IssueActionAcknowledge},
		{IssueClosed, IssueActionResolve},
		{IssueClosed, IssueActionAcknowledge},
		{IssueResolved, IssueActionResolve},
		{IssueSnoozed, IssueActionResolve},
		{IssueRegressionWatch, IssueActionResolve},
		{IssueSurfaced, IssueActionWatch},
		{IssueSurfaced, IssueActionClose},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			t.Parallel()
			iss := &Issue{State: tt.from}
			_, err := iss.Transition(tt.action)
			if err == nil {
				t.Fatalf("Transition(%s) from %s: expected error", tt.action, tt.from)
			}

			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("expected InvalidTransitionError, got %T: %v", err, err)
			}
			if ite.Entity != EntityTypeIssue {
				t.Errorf("entity: got %s, want %s", ite.Entity, EntityTypeIssue)
			}
			if !errors.Is(err, ErrConflict) {
				t.Error("InvalidTransitionError should unwrap to ErrConflict")
			}
		})
	}
}

func TestIssue_AvailableActions_ExcludesSystemActions(t *testing.T) {
	t.Parallel()

	iss := &Issue{State: IssueRegressionWatch}
	if got := iss.AvailableActions(); len(got) != 0 {
		t.Errorf("regression_watch should expose no user actions, got %v", got)
	}

	iss = &Issue{State: IssueSurfaced}
	got := iss.AvailableActions()
	want := map[IssueAction]bool{
		IssueActionAcknowledge: true,
		IssueActionSnooze:      true,
		IssueActionAssign:      true,
		IssueActionResolve:     true,
	}
	if len(got) != len(want) {
		t.Fatalf("surfaced actions: got %v, want %d actions", got, len(want))
	}
	for _, a := range got {
		if !want[a] {
			t.Errorf("unexpected action %s", a)
		}
	}
}

func TestIssue_SetTagged_FirstConfirmationWins(t *testing.T) {
	t.Parallel()

	iss := &Issue{State: IssueSurfaced}
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	iss.SetTagged("alice", first)
	iss.SetTagged("bob", second)

	if iss.TaggedBy == nil || *iss.TaggedBy != "alice" {
		t.Errorf("TaggedBy: got %v, want alice", iss.TaggedBy)
	}
	if iss.TaggedAt == nil || !iss.TaggedAt.Equal(first) {
		t.Errorf("TaggedAt: got %v, want %v", iss.TaggedAt, first)
	}
}

func TestIssue_CountsTowardHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		issue Issue
		want  bool
	}{
		{"surfaced critical", Issue{State: IssueSurfaced, Severity: SeverityCritical}, true},
		{"addressing high", Issue{State: IssueAddressing, Severity: SeverityHigh}, true},
		{"regressed high", Issue{State: IssueRegressed, Severity: SeverityHigh}, true},
		{"suppressed critical", Issue{State: IssueSurfaced, Severity: SeverityCritical, Suppressed: true}, false},
		{"snoozed critical", Issue{State: IssueSnoozed, Severity: SeverityCritical}, false},
		{"surfaced medium", Issue{State: IssueSurfaced, Severity: SeverityMedium}, false},
		{"closed critical", Issue{State: IssueClosed, Severity: SeverityCritical}, false},
		{"regression watch high", Issue{State: IssueRegressionWatch, Severity: SeverityHigh}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.issue.CountsTowardHealth(); got != tt.want {
				t.Errorf("CountsTowardHealth() = %v, want %v", got, tt.want)
			}
		})
	}
}
