package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is one append-only audit row: a single lifecycle
// transition of an issue, inbox item, or engagement. Actor is either a
// user identifier or ActorSystem.
type TransitionRecord struct {
	ID         uuid.UUID
	EntityType EntityType
	EntityID   uuid.UUID
	FromState  string
	ToState    string
	Action     string
	Reason     TransitionReason
	Actor      string
	Note       *string
	CreatedAt  time.Time
}
