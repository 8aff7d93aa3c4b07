package domain

import (
	"time"

	"github.com/google/uuid"
)

// Engagement is a project or retainer owned by exactly one brand.
// Internal engagements have no client; for all others ClientID is
// derived from the owning brand and must never be set by hand.
type Engagement struct {
	ID         uuid.UUID
	BrandID    *uuid.UUID
	ClientID   *uuid.UUID // derived: nil iff IsInternal
	Name       string
	Type       EngagementType
	State      EngagementState
	IsInternal bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EngagementAction is a lifecycle action on an engagement.
type EngagementAction string

const (
	EngagementActionQualify  EngagementAction = "qualify"  // prospect -> scoping
	EngagementActionStart    EngagementAction = "start"    // scoping -> active
	EngagementActionDeliver  EngagementAction = "deliver"  // active -> delivering
	EngagementActionHold     EngagementAction = "hold"     // active|delivering -> on_hold
	EngagementActionResume   EngagementAction = "resume"   // on_hold -> active
	EngagementActionComplete EngagementAction = "complete" // delivering -> completed
	EngagementActionCancel   EngagementAction = "cancel"   // any non-final -> cancelled
)

// engagementTransitions is the full legality table. Heuristic triggers
// (e.g. task-completion ratios) live in external producers; the engine
// only validates (state, action) pairs.
var engagementTransitions = map[EngagementState]map[EngagementAction]EngagementState{
	EngagementProspect: {
		EngagementActionQualify: EngagementScoping,
		EngagementActionCancel:  EngagementCancelled,
	},
	EngagementScoping: {
		EngagementActionStart:  EngagementActive,
		EngagementActionCancel: EngagementCancelled,
	},
	EngagementActive: {
		EngagementActionDeliver: EngagementDelivering,
		EngagementActionHold:    EngagementOnHold,
		EngagementActionCancel:  EngagementCancelled,
	},
	EngagementDelivering: {
		EngagementActionComplete: EngagementCompleted,
		EngagementActionHold:     EngagementOnHold,
		EngagementActionCancel:   EngagementCancelled,
	},
	EngagementOnHold: {
		EngagementActionResume: EngagementActive,
		EngagementActionCancel: EngagementCancelled,
	},
}

// Transition returns the state after applying action, or an
// InvalidTransitionError when the pair is not in the legality table.
func (e *Engagement) Transition(action EngagementAction) (EngagementState, error) {
	next, ok := engagementTransitions[e.State][action]
	if !ok {
		return "", NewInvalidTransition(EntityTypeEngagement, e.State.String(), string(action))
	}
	return next, nil
}
