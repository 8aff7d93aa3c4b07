// Package queue builds the manual-repair resolution queue. Build is
// pure: it diffs the broken links found in a snapshot against the
// currently open entries and returns the inserts and closes the
// persistence layer should apply. Resolution actions themselves are
// external writes the normalizer picks up later.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

// Priority bands. Priority 1 is reserved for entries whose entity is
// due inside the urgency window.
const (
	PriorityUrgent  = 1
	PriorityBroken  = 2
	PriorityPartial = 3
)

// DefaultUrgencyWindow is how close a due date must be for an entry to
// get priority 1.
const DefaultUrgencyWindow = 7 * 24 * time.Hour

// Key identifies one queue entry. Open entries are unique per key.
type Key struct {
	EntityType domain.EntityType
	EntityID   uuid.UUID
	IssueType  domain.IssueType
}

// Finding is one broken or ambiguous link discovered in the snapshot.
type Finding struct {
	Key      Key
	Priority int
	Detail   string
}

// Input is the state a refresh diffs against.
type Input struct {
	Engagements []*domain.Engagement
	Tasks       []*domain.Task
	Invoices    []*domain.Invoice

	// Open entries currently in the queue, as loaded from storage.
	Open []*domain.ResolutionEntry

	UrgencyWindow time.Duration // zero means DefaultUrgencyWindow
	Now           time.Time
}

// Result is the diff a refresh produced. Inserts never contain a key
// that already has an open entry; Close lists open entries whose
// underlying break has been repaired.
type Result struct {
	Inserts []Finding
	Close   []uuid.UUID
}

// Empty reports whether the refresh produced no writes.
func (r Result) Empty() bool {
	return len(r.Inserts) == 0 && len(r.Close) == 0
}

// Build computes the queue refresh for the given snapshot.
func Build(in Input) Result {
	window := in.UrgencyWindow
	if window == 0 {
		window = DefaultUrgencyWindow
	}

	findings := collect(in, window)

	current := make(map[Key]*domain.ResolutionEntry, len(in.Open))
	for _, e := range in.Open {
		current[Key{EntityType: e.EntityType, EntityID: e.EntityID, IssueType: e.IssueType}] = e
	}

	var res Result
	seen := make(map[Key]struct{}, len(findings))
	for _, f := range findings {
		if _, dup := seen[f.Key]; dup {
			continue
		}
		seen[f.Key] = struct{}{}
		if _, open := current[f.Key]; open {
			continue // never double-insert for the same open key
		}
		res.Inserts = append(res.Inserts, f)
	}

	for key, entry := range current {
		if _, still := seen[key]; !still {
			res.Close = append(res.Close, entry.ID)
		}
	}

	return res
}

func collect(in Input, window time.Duration) []Finding {
	var out []Finding

	for _, t := range in.Tasks {
		switch t.ProjectLinkStatus {
		case domain.ProjectLinkLinked:
			continue
		case domain.ProjectLinkUnlinked:
			out = append(out, Finding{
				Key:      Key{EntityType: domain.EntityTypeTask, EntityID: t.ID, IssueType: domain.IssueTypeUnlinkedWork},
				Priority: taskPriority(t, PriorityPartial, window, in.Now),
				Detail:   "task has no engagement reference",
			})
		case domain.ProjectLinkPartial:
			out = append(out, Finding{
				Key:      Key{EntityType: domain.EntityTypeTask, EntityID: t.ID, IssueType: domain.IssueTypeUnlinkedWork},
				Priority: taskPriority(t, PriorityBroken, window, in.Now),
				Detail:   "task engagement chain is broken",
			})
		}
	}

	for _, e := range in.Engagements {
		if e.IsInternal {
			continue
		}
		if e.BrandID == nil || e.ClientID == nil {
			out = append(out, Finding{
				Key:      Key{EntityType: domain.EntityTypeEngagement, EntityID: e.ID, IssueType: domain.IssueTypeDataQuality},
				Priority: PriorityBroken,
				Detail:   "engagement does not resolve to a client",
			})
		}
	}

	for _, inv := range in.Invoices {
		if inv.IsBillableValid() {
			continue
		}
		priority := PriorityBroken
		if inv.DueAt != nil && dueWithin(*inv.DueAt, in.Now, window) {
			priority = PriorityUrgent
		}
		out = append(out, Finding{
			Key:      Key{EntityType: domain.EntityTypeInvoice, EntityID: inv.ID, IssueType: domain.IssueTypeBillingHygiene},
			Priority: priority,
			Detail:   fmt.Sprintf("open invoice %s is missing billable fields", inv.Number),
		})
	}

	return out
}

func taskPriority(t *domain.Task, base int, window time.Duration, now time.Time) int {
	if t.IsCompleted {
		return base
	}
	if t.DueAt != nil && dueWithin(*t.DueAt, now, window) {
		return PriorityUrgent
	}
	return base
}

// dueWithin reports whether due falls inside the urgency window. Past
// due counts as urgent too.
func dueWithin(due, now time.Time, window time.Duration) bool {
	return !due.After(now.Add(window))
}
