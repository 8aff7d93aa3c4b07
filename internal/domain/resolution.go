package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionEntry is one actionable row in the manual-repair queue.
// Entries are keyed by (EntityType, EntityID, IssueType) and upserted
// idempotently: an open entry for the same key is never duplicated.
// The queue performs no mutation itself; repairs are external writes
// the normalizer picks up on its next pass.
type ResolutionEntry struct {
	ID         uuid.UUID
	EntityType EntityType
	EntityID   uuid.UUID
	IssueType  IssueType
	Priority   int // 1 is most urgent
	Detail     string
	Open       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}
