// Package normalize implements the cascading link-status derivation.
// Everything here is a pure function of the join graph: given a snapshot
// of clients, brands and engagements, it recomputes the derived fields
// on engagements and tasks. Name-based inference is never used — a
// resolver that guesses links from display text must route through the
// resolution queue, not through this package.
package normalize

import (
	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

// Snapshot is an in-memory index of the reference entities a derivation
// pass joins against.
type Snapshot struct {
	Clients     map[uuid.UUID]*domain.Client
	Brands      map[uuid.UUID]*domain.Brand
	Engagements map[uuid.UUID]*domain.Engagement
}

// NewSnapshot indexes the given entities by ID.
func NewSnapshot(clients []*domain.Client, brands []*domain.Brand, engagements []*domain.Engagement) Snapshot {
	s := Snapshot{
		Clients:     make(map[uuid.UUID]*domain.Client, len(clients)),
		Brands:      make(map[uuid.UUID]*domain.Brand, len(brands)),
		Engagements: make(map[uuid.UUID]*domain.Engagement, len(engagements)),
	}
	for _, c := range clients {
		s.Clients[c.ID] = c
	}
	for _, b := range brands {
		s.Brands[b.ID] = b
	}
	for _, e := range engagements {
		s.Engagements[e.ID] = e
	}
	return s
}

// DeriveEngagementClient recomputes Engagement.ClientID from the owning
// brand. Internal engagements never carry a client. A dangling brand
// reference yields nil; the gate evaluator flags the row rather than
// this function guessing.
func DeriveEngagementClient(e *domain.Engagement, s Snapshot) *uuid.UUID {
	if e.IsInternal || e.BrandID == nil {
		return nil
	}
	brand, ok := s.Brands[*e.BrandID]
	if !ok || brand.ClientID == uuid.Nil {
		return nil
	}
	if _, ok := s.Clients[brand.ClientID]; !ok {
		return nil
	}
	id := brand.ClientID
	return &id
}

// TaskDerivation holds the recomputed derived fields for a task.
type TaskDerivation struct {
	BrandID           *uuid.UUID
	ClientID          *uuid.UUID
	ProjectLinkStatus domain.ProjectLinkStatus
	ClientLinkStatus  domain.ClientLinkStatus
}

// DeriveTask recomputes a task's derived fields. Strict order, no
// fallthrough guessing:
//
//  1. no engagement reference            -> unlinked / unlinked
//  2. reference present, target missing  -> partial  / unlinked
//  3. target is internal                 -> linked   / n/a (brand copied verbatim)
//  4. non-internal chain broken anywhere -> partial  / unlinked (partial data kept for audit)
//  5. full chain resolves                -> linked   / linked
func DeriveTask(t *domain.Task, s Snapshot) TaskDerivation {
	if t.ProjectID == nil {
		return TaskDerivation{
			ProjectLinkStatus: domain.ProjectLinkUnlinked,
			ClientLinkStatus:  domain.ClientLinkUnlinked,
		}
	}

	eng, ok := s.Engagements[*t.ProjectID]
	if !ok {
		// Stale reference: the engagement row is gone. Degrade to
		// partial instead of failing the pass.
		return TaskDerivation{
			ProjectLinkStatus: domain.ProjectLinkPartial,
			ClientLinkStatus:  domain.ClientLinkUnlinked,
		}
	}

	if eng.IsInternal {
		return TaskDerivation{
			BrandID:           copyID(eng.BrandID),
			ProjectLinkStatus: domain.ProjectLinkLinked,
			ClientLinkStatus:  domain.ClientLinkNA,
		}
	}

	d := TaskDerivation{
		BrandID:           copyID(eng.BrandID),
		ProjectLinkStatus: domain.ProjectLinkPartial,
		ClientLinkStatus:  domain.ClientLinkUnlinked,
	}
	if eng.BrandID == nil {
		return d
	}
	brand, ok := s.Brands[*eng.BrandID]
	if !ok || brand.ClientID == uuid.Nil {
		return d
	}
	clientID := brand.ClientID
	d.ClientID = &clientID
	if _, ok := s.Clients[clientID]; !ok {
		return d
	}

	d.ProjectLinkStatus = domain.ProjectLinkLinked
	d.ClientLinkStatus = domain.ClientLinkLinked
	return d
}

// Differs reports whether applying the derivation would change the task.
// The normalizer persists only rows where this is true, which is what
// makes a repeated pass a zero-write no-op.
func (d TaskDerivation) Differs(t *domain.Task) bool {
	return !idEqual(d.BrandID, t.BrandID) ||
		!idEqual(d.ClientID, t.ClientID) ||
		d.ProjectLinkStatus != t.ProjectLinkStatus ||
		d.ClientLinkStatus != t.ClientLinkStatus
}

// Apply writes the derivation onto the task.
func (d TaskDerivation) Apply(t *domain.Task) {
	t.BrandID = d.BrandID
	t.ClientID = d.ClientID
	t.ProjectLinkStatus = d.ProjectLinkStatus
	t.ClientLinkStatus = d.ClientLinkStatus
}

// EngagementUpdate is one engagement whose derived client changed.
type EngagementUpdate struct {
	ID       uuid.UUID
	ClientID *uuid.UUID
}

// TaskUpdate is one task whose derived fields changed.
type TaskUpdate struct {
	ID         uuid.UUID
	Derivation TaskDerivation
}

// Result is the diff a derivation pass produced.
type Result struct {
	EngagementUpdates []EngagementUpdate
	TaskUpdates       []TaskUpdate
}

// Run derives every engagement and task against the snapshot and
// returns only the rows whose derived values differ. Running it twice
// over an unchanged snapshot returns an empty Result.
func Run(s Snapshot, engagements []*domain.Engagement, tasks []*domain.Task) Result {
	var res Result

	for _, e := range engagements {
		derived := DeriveEngagementClient(e, s)
		if !idEqual(derived, e.ClientID) {
			res.EngagementUpdates = append(res.EngagementUpdates, EngagementUpdate{ID: e.ID, ClientID: derived})
		}
	}

	for _, t := range tasks {
		d := DeriveTask(t, s)
		if d.Differs(t) {
			res.TaskUpdates = append(res.TaskUpdates, TaskUpdate{ID: t.ID, Derivation: d})
		}
	}

	return res
}

// Empty reports whether the pass produced no writes.
func (r Result) Empty() bool {
	return len(r.EngagementUpdates) == 0 && len(r.TaskUpdates) == 0
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func idEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
