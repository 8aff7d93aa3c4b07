package normalize

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

// fixture builds a fully linked chain: client -> brand -> engagement.
func fixture() (Snapshot, *domain.Client, *domain.Brand, *domain.Engagement) {
	client := &domain.Client{ID: uuid.New(), Name: "Acme", Tier: domain.TierCore}
	brand := &domain.Brand{ID: uuid.New(), ClientID: client.ID, Name: "Acme Retail"}
	brandID := brand.ID
	clientID := client.ID
	eng := &domain.Engagement{
		ID:       uuid.New(),
		BrandID:  &brandID,
		ClientID: &clientID,
		Name:     "Spring campaign",
		Type:     domain.EngagementTypeProject,
		State:    domain.EngagementActive,
	}
	s := NewSnapshot([]*domain.Client{client}, []*domain.Brand{brand}, []*domain.Engagement{eng})
	return s, client, brand, eng
}

func TestDeriveTask_NoEngagementReference(t *testing.T) {
	t.Parallel()

	s, _, _, _ := fixture()
	task := &domain.Task{ID: uuid.New()}

	d := DeriveTask(task, s)
	if d.ProjectLinkStatus != domain.ProjectLinkUnlinked {
		t.Errorf("project status = %s, want unlinked", d.ProjectLinkStatus)
	}
	if d.ClientLinkStatus != domain.ClientLinkUnlinked {
		t.Errorf("client status = %s, want unlinked", d.ClientLinkStatus)
	}
	if d.BrandID != nil || d.ClientID != nil {
		t.Error("no reference should derive no brand/client")
	}
}

// Scenario A: task references a missing engagement.
func TestDeriveTask_MissingEngagement(t *testing.T) {
	t.Parallel()

	s, _, _, _ := fixture()
	missing := uuid.New()
	task := &domain.Task{ID: uuid.New(), ProjectID: &missing}

	d := DeriveTask(task, s)
	if d.ProjectLinkStatus != domain.ProjectLinkPartial {
		t.Errorf("project status = %s, want partial", d.ProjectLinkStatus)
	}
	if d.ClientLinkStatus != domain.ClientLinkUnlinked {
		t.Errorf("client status = %s, want unlinked", d.ClientLinkStatus)
	}
}

// Scenario B: internal engagement, task linked.
func TestDeriveTask_InternalEngagement(t *testing.T) {
	t.Parallel()

	brandID := uuid.New()
	internal := &domain.Engagement{
		ID:         uuid.New(),
		BrandID:    &brandID, // copied verbatim even though the brand does not exist
		IsInternal: true,
		State:      domain.EngagementActive,
	}
	s := NewSnapshot(nil, nil, []*domain.Engagement{internal})

	task := &domain.Task{ID: uuid.New(), ProjectID: &internal.ID}
	d := DeriveTask(task, s)
	if d.ProjectLinkStatus != domain.ProjectLinkLinked {
		t.Errorf("project status = %s, want linked", d.ProjectLinkStatus)
	}
	if d.ClientLinkStatus != domain.ClientLinkNA {
		t.Errorf("client status = %s, want n/a", d.ClientLinkStatus)
	}
	if d.BrandID == nil || *d.BrandID != brandID {
		t.Errorf("brand = %v, want verbatim copy %v", d.BrandID, brandID)
	}
	if d.ClientID != nil {
		t.Error("internal engagements never derive a client")
	}
}

func TestDeriveTask_InternalEngagement_NilBrand(t *testing.T) {
	t.Parallel()

	internal := &domain.Engagement{ID: uuid.New(), IsInternal: true, State: domain.EngagementActive}
	s := NewSnapshot(nil, nil, []*domain.Engagement{internal})

	task := &domain.Task{ID: uuid.New(), ProjectID: &internal.ID}
	d := DeriveTask(task, s)
	if d.ProjectLinkStatus != domain.ProjectLinkLinked || d.ClientLinkStatus != domain.ClientLinkNA {
		t.Errorf("got %s/%s, want linked/n-a", d.ProjectLinkStatus, d.ClientLinkStatus)
	}
	if d.BrandID != nil {
		t.Error("nil brand must be copied verbatim as nil")
	}
}

func TestDeriveTask_BrokenChain(t *testing.T) {
	t.Parallel()

	client := &domain.Client{ID: uuid.New()}
	brand := &domain.Brand{ID: uuid.New(), ClientID: client.ID}

	missingBrand := uuid.New()

	tests := []struct {
		name        string
		clients     []*domain.Client
		brands      []*domain.Brand
		engBrandID  *uuid.UUID
		wantBrand   *uuid.UUID
		wantClient  *uuid.UUID
	}{
		{
			name:    "brand id nil on non-internal engagement",
			clients: []*domain.Client{client},
			brands:  []*domain.Brand{brand},
		},
		{
			name:       "brand missing",
			clients:    []*domain.Client{client},
			brands:     []*domain.Brand{brand},
			engBrandID: &missingBrand,
			wantBrand:  &missingBrand,
		},
		{
			name:       "client missing",
			clients:    nil, // brand's client row deleted upstream
			brands:     []*domain.Brand{brand},
			engBrandID: &brand.ID,
			wantBrand:  &brand.ID,
			wantClient: &client.ID, // partial data kept for audit
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &domain.Engagement{ID: uuid.New(), BrandID: tt.engBrandID, State: domain.EngagementActive}
			s := NewSnapshot(tt.clients, tt.brands, []*domain.Engagement{eng})

			task := &domain.Task{ID: uuid.New(), ProjectID: &eng.ID}
			d := DeriveTask(task, s)

			if d.ProjectLinkStatus != domain.ProjectLinkPartial {
				t.Errorf("project status = %s, want partial", d.ProjectLinkStatus)
			}
			if d.ClientLinkStatus != domain.ClientLinkUnlinked {
				t.Errorf("client status = %s, want unlinked", d.ClientLinkStatus)
			}
			if !ptrEqual(d.BrandID, tt.wantBrand) {
				t.Errorf("brand = %v, want %v", d.BrandID, tt.wantBrand)
			}
			if !ptrEqual(d.ClientID, tt.wantClient) {
				t.Errorf("client = %v, want %v", d.ClientID, tt.wantClient)
			}
		})
	}
}

func TestDeriveTask_FullChain(t *testing.T) {
	t.Parallel()

	s, client, brand, eng := fixture()
	task := &domain.Task{ID: uuid.New(), ProjectID: &eng.ID}

	d := DeriveTask(task, s)
	if d.ProjectLinkStatus != domain.ProjectLinkLinked {
		t.Errorf("project status = %s, want linked", d.ProjectLinkStatus)
	}
	if d.ClientLinkStatus != domain.ClientLinkLinked {
		t.Errorf("client status = %s, want linked", d.ClientLinkStatus)
	}
	if d.BrandID == nil || *d.BrandID != brand.ID {
		t.Errorf("brand = %v, want %v", d.BrandID, brand.ID)
	}
	if d.ClientID == nil || *d.ClientID != client.ID {
		t.Errorf("client = %v, want %v", d.ClientID, client.ID)
	}
}

func TestDeriveEngagementClient(t *testing.T) {
	t.Parallel()

	s, client, brand, _ := fixture()

	internal := &domain.Engagement{ID: uuid.New(), IsInternal: true, BrandID: &brand.ID}
	if got := DeriveEngagementClient(internal, s); got != nil {
		t.Errorf("internal engagement derived client %v, want nil", got)
	}

	external := &domain.Engagement{ID: uuid.New(), BrandID: &brand.ID}
	got := DeriveEngagementClient(external, s)
	if got == nil || *got != client.ID {
		t.Errorf("derived client = %v, want %v", got, client.ID)
	}

	missing := uuid.New()
	dangling := &domain.Engagement{ID: uuid.New(), BrandID: &missing}
	if got := DeriveEngagementClient(dangling, s); got != nil {
		t.Errorf("dangling brand derived client %v, want nil", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	s, _, _, eng := fixture()
	task := &domain.Task{ID: uuid.New(), ProjectID: &eng.ID}
	engs := []*domain.Engagement{eng}
	tasks := []*domain.Task{task}

	first := Run(s, engs, tasks)
	if first.Empty() {
		t.Fatal("first pass over a fresh task should produce writes")
	}
	if len(first.TaskUpdates) != 1 {
		t.Fatalf("task updates: got %d, want 1", len(first.TaskUpdates))
	}

	// Apply the derivation, as the persistence layer would.
	first.TaskUpdates[0].Derivation.Apply(task)

	second := Run(s, engs, tasks)
	if !second.Empty() {
		t.Errorf("second pass should be a zero-write no-op, got %+v", second)
	}
}

func TestRun_ReportsOnlyChangedRows(t *testing.T) {
	t.Parallel()

	s, client, _, eng := fixture()

	linked := &domain.Task{ID: uuid.New(), ProjectID: &eng.ID}
	DeriveTask(linked, s).Apply(linked)

	missing := uuid.New()
	stale := &domain.Task{
		ID:                uuid.New(),
		ProjectID:         &missing,
		ClientID:          &client.ID,
		ProjectLinkStatus: domain.ProjectLinkLinked,
		ClientLinkStatus:  domain.ClientLinkLinked,
	}

	res := Run(s, []*domain.Engagement{eng}, []*domain.Task{linked, stale})
	if len(res.TaskUpdates) != 1 {
		t.Fatalf("task updates: got %d, want 1", len(res.TaskUpdates))
	}
	if res.TaskUpdates[0].ID != stale.ID {
		t.Errorf("updated task = %v, want the stale one %v", res.TaskUpdates[0].ID, stale.ID)
	}
	d := res.TaskUpdates[0].Derivation
	if d.ProjectLinkStatus != domain.ProjectLinkPartial || d.ClientLinkStatus != domain.ClientLinkUnlinked {
		t.Errorf("stale derivation = %s/%s, want partial/unlinked", d.ProjectLinkStatus, d.ClientLinkStatus)
	}
}

func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
