package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedClient creates a client row. Returns a filled domain.Client.
func SeedClient(t *testing.T, pool *pgxpool.Pool) domain.Client {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	client := domain.Client{
		ID:        uuid.New(),
		Name:      "Test Client " + suffix,
		Tier:      domain.TierCore,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO clients (id, name, tier, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		client.ID, client.Name, client.Tier.String(), client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedClient insert: %v", err)
	}

	return client
}

// SeedBrand creates a brand under the given client.
func SeedBrand(t *testing.T, pool *pgxpool.Pool, clientID uuid.UUID) domain.Brand {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	brand := domain.Brand{
		ID:        uuid.New(),
		ClientID:  clientID,
		Name:      "Test Brand " + suffix,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO brands (id, client_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		brand.ID, brand.ClientID, brand.Name, brand.CreatedAt, brand.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedBrand insert: %v", err)
	}

	return brand
}

// SeedEngagement creates an active engagement under the given brand and
// client. Pass nil pointers for an internal engagement.
func SeedEngagement(t *testing.T, pool *pgxpool.Pool, brandID, clientID *uuid.UUID, internal bool) domain.Engagement {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	eng := domain.Engagement{
		ID:         uuid.New(),
		BrandID:    brandID,
		ClientID:   clientID,
		Name:       "Test Engagement " + suffix,
		Type:       domain.EngagementTypeProject,
		State:      domain.EngagementActive,
		IsInternal: internal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO engagements (id, brand_id, client_id, name, type, state, is_internal, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		eng.ID, eng.BrandID, eng.ClientID, eng.Name, eng.Type.String(), eng.State.String(),
		eng.IsInternal, eng.CreatedAt, eng.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedEngagement insert: %v", err)
	}

	return eng
}

// SeedIssue creates a surfaced high-severity issue scoped to the client.
func SeedIssue(t *testing.T, pool *pgxpool.Pool, clientID uuid.UUID) domain.Issue {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	issue := domain.Issue{
		ID:        uuid.New(),
		Type:      domain.IssueTypeClientRisk,
		Severity:  domain.SeverityHigh,
		State:     domain.IssueSurfaced,
		Scope:     domain.Scope{ClientID: &clientID},
		Title:     "Test Issue " + suffix,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO issues (id, type, severity, state, client_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		issue.ID, issue.Type.String(), issue.Severity.String(), issue.State.String(),
		clientID, issue.Title, issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedIssue insert: %v", err)
	}

	return issue
}

// SeedSignal creates an undismissed signal scoped to the client.
func SeedSignal(t *testing.T, pool *pgxpool.Pool, clientID uuid.UUID, rule string) domain.Signal {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	sig := domain.Signal{
		ID:            uuid.New(),
		Scope:         domain.Scope{ClientID: &clientID},
		Sentiment:     domain.SentimentNegative,
		RuleTriggered: rule,
		Source:        "testsource",
		ObservedAt:    now,
		CreatedAt:     now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO signals (id, client_id, sentiment, rule_triggered, source, evidence, observed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb, $6, $7)`,
		sig.ID, clientID, sig.Sentiment.String(), sig.RuleTriggered, sig.Source,
		sig.ObservedAt, sig.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSignal insert: %v", err)
	}

	return sig
}
