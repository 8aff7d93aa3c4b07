package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnderlyingKind discriminates what an inbox item wraps.
type UnderlyingKind string

const (
	UnderlyingKindIssue  UnderlyingKind = "issue"
	UnderlyingKindSignal UnderlyingKind = "signal"
)

func (k UnderlyingKind) IsValid() bool {
	return k == UnderlyingKindIssue || k == UnderlyingKindSignal
}

// Underlying is the tagged union behind an inbox item: exactly one issue
// or one signal, never both, never neither. The constructors are the only
// way to build a valid value, so exclusivity holds by construction.
type Underlying struct {
	kind UnderlyingKind
	id   uuid.UUID
}

// UnderlyingIssue wraps an issue reference.
func UnderlyingIssue(id uuid.UUID) Underlying {
	return Underlying{kind: UnderlyingKindIssue, id: id}
}

// UnderlyingSignal wraps a signal reference.
func UnderlyingSignal(id uuid.UUID) Underlying {
	return Underlying{kind: UnderlyingKindSignal, id: id}
}

func (u Underlying) Kind() UnderlyingKind { return u.kind }
func (u Underlying) ID() uuid.UUID        { return u.id }

// IssueID returns the issue reference, if this wraps an issue.
func (u Underlying) IssueID() (uuid.UUID, bool) {
	if u.kind != UnderlyingKindIssue {
		return uuid.Nil, false
	}
	return u.id, true
}

// SignalID returns the signal reference, if this wraps a signal.
func (u Underlying) SignalID() (uuid.UUID, bool) {
	if u.kind != UnderlyingKindSignal {
		return uuid.Nil, false
	}
	return u.id, true
}

// IsZero reports whether the union was never initialized.
func (u Underlying) IsZero() bool { return u.kind == "" }

// InboxItem is a proposal surfaced to the user, wrapping exactly one
// issue or one signal. Terminal items carry a resolution timestamp and,
// for dismissed items, a suppression key.
type InboxItem struct {
	ID         uuid.UUID
	Type       InboxItemType
	State      InboxState
	Underlying Underlying
	Scope      Scope
	Source     string
	Rule       string
	Title      string

	SuppressionKey  string // computed at propose time, stored for audit
	SnoozedUntil    *time.Time
	ResolvedAt      *time.Time
	ResolvedIssueID *uuid.UUID // set on linked_to_issue

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InboxAction is a lifecycle action on an inbox item.
type InboxAction string

const (
	InboxActionTag      InboxAction = "tag"
	InboxActionAssign   InboxAction = "assign"
	InboxActionSnooze   InboxAction = "snooze"
	InboxActionUnsnooze InboxAction = "unsnooze" // timer expiry only
	InboxActionDismiss  InboxAction = "dismiss"
	InboxActionLink     InboxAction = "link"
	InboxActionCreate   InboxAction = "create"
	InboxActionSelect   InboxAction = "select" // ambiguous only; no state change
)

var inboxTransitions = map[InboxState]map[InboxAction]InboxState{
	InboxProposed: {
		InboxActionTag:     InboxLinkedToIssue,
		InboxActionAssign:  InboxLinkedToIssue,
		InboxActionLink:    InboxLinkedToIssue,
		InboxActionCreate:  InboxLinkedToIssue,
		InboxActionSnooze:  InboxSnoozed,
		InboxActionDismiss: InboxDismissed,
	},
	InboxSnoozed: {
		InboxActionUnsnooze: InboxProposed,
	},
}

// Transition returns the state after applying action, or an
// InvalidTransitionError. Terminal states have no outgoing edges.
func (it *InboxItem) Transition(action InboxAction) (InboxState, error) {
	next, ok := inboxTransitions[it.State][action]
	if !ok {
		return "", NewInvalidTransition(EntityTypeInboxItem, it.State.String(), string(action))
	}
	return next, nil
}

// AvailableActions lists the user-facing actions legal in the item's
// current state. Select is included for ambiguous items in proposed
// state even though it does not change state.
func (it *InboxItem) AvailableActions() []InboxAction {
	ordered := []InboxAction{
		InboxActionTag, InboxActionAssign, InboxActionSnooze,
		InboxActionDismiss, InboxActionLink, InboxActionCreate,
	}
	var out []InboxAction
	for _, a := range ordered {
		if _, ok := inboxTransitions[it.State][a]; ok {
			out = append(out, a)
		}
	}
	if it.Type == InboxTypeAmbiguous && it.State == InboxProposed {
		out = append(out, InboxActionSelect)
	}
	return out
}
