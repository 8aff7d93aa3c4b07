package domain

import (
	"time"

	"github.com/google/uuid"
)

// Issue is an aggregated, trackable problem. Issues are never deleted,
// only transitioned. Suppressed and Escalated are orthogonal flags, not
// lifecycle states.
type Issue struct {
	ID         uuid.UUID
	Type       IssueType
	Severity   IssueSeverity
	State      IssueState
	Scope      Scope
	Title      string
	Suppressed bool
	Escalated  bool

	// Once-settable confirmation fields: the first Tag wins, later
	// confirmations must not overwrite them.
	TaggedBy *string
	TaggedAt *time.Time

	AssignedTo *string
	AssignedAt *time.Time

	SnoozedUntil  *time.Time
	WatchDeadline *time.Time // end of the regression watch window

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IssueAction is a lifecycle action on an issue.
type IssueAction string

const (
	IssueActionSurface      IssueAction = "surface"       // aggregation threshold reached
	IssueActionAcknowledge  IssueAction = "acknowledge"
	IssueActionSnooze       IssueAction = "snooze"
	IssueActionUnsnooze     IssueAction = "unsnooze"
	IssueActionAssign       IssueAction = "assign"
	IssueActionMarkAwaiting IssueAction = "mark_awaiting"
	IssueActionResolve      IssueAction = "resolve"
	IssueActionWatch        IssueAction = "watch" // resolved -> regression_watch, system only
	IssueActionClose        IssueAction = "close" // watch timeout, system only
	IssueActionRegress      IssueAction = "regress" // recurrence signal, system only
)

var issueTransitions = map[IssueState]map[IssueAction]IssueState{
	IssueDetected: {
		IssueActionSurface: IssueSurfaced,
	},
	IssueSurfaced: {
		IssueActionAcknowledge: IssueAcknowledged,
		IssueActionAssign:      IssueAddressing,
		IssueActionSnooze:      IssueSnoozed,
		IssueActionResolve:     IssueResolved,
	},
	IssueSnoozed: {
		IssueActionUnsnooze: IssueSurfaced,
	},
	IssueAcknowledged: {
		IssueActionAssign:       IssueAddressing,
		IssueActionSnooze:       IssueSnoozed,
		IssueActionMarkAwaiting: IssueAwaitingResolution,
		IssueActionResolve:      IssueResolved,
	},
	IssueAddressing: {
		IssueActionMarkAwaiting: IssueAwaitingResolution,
		IssueActionSnooze:       IssueSnoozed,
		IssueActionResolve:      IssueResolved,
	},
	IssueAwaitingResolution: {
		IssueActionResolve: IssueResolved,
	},
	IssueResolved: {
		IssueActionWatch: IssueRegressionWatch,
	},
	IssueRegressionWatch: {
		IssueActionClose:   IssueClosed,
		IssueActionRegress: IssueRegressed,
	},
	IssueRegressed: {
		IssueActionAcknowledge: IssueAcknowledged,
		IssueActionAssign:      IssueAddressing,
		IssueActionSnooze:      IssueSnoozed,
		IssueActionResolve:     IssueResolved,
	},
}

// Transition returns the state after applying action, or an
// InvalidTransitionError when the pair is not legal. Two write paths
// disagreeing on legality is exactly the bug this table eliminates.
func (i *Issue) Transition(action IssueAction) (IssueState, error) {
	next, ok := issueTransitions[i.State][action]
	if !ok {
		return "", NewInvalidTransition(EntityTypeIssue, i.State.String(), string(action))
	}
	return next, nil
}

// AvailableActions lists the user-facing actions legal in the issue's
// current state, for the read surface. System-only actions (watch,
// close, regress, surface) are excluded.
func (i *Issue) AvailableActions() []IssueAction {
	ordered := []IssueAction{
		IssueActionAcknowledge, IssueActionSnooze, IssueActionUnsnooze,
		IssueActionAssign, IssueActionMarkAwaiting, IssueActionResolve,
	}
	var out []IssueAction
	for _, a := range ordered {
		if _, ok := issueTransitions[i.State][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// SetTagged records the first confirmation. Subsequent calls no-op so
// the original confirmer is preserved.
func (i *Issue) SetTagged(actor string, at time.Time) {
	if i.TaggedBy != nil {
		return
	}
	i.TaggedBy = &actor
	i.TaggedAt = &at
}

// CountsTowardHealth reports whether this issue contributes a health
// penalty: health-counted state, penalized severity, not suppressed.
func (i *Issue) CountsTowardHealth() bool {
	return i.State.IsHealthCounted() && i.Severity.IsPenalized() && !i.Suppressed
}
