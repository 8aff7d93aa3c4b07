// Package resolution persists the manual-repair queue. The partial
// unique index over open entries backs the idempotent refresh: inserts
// use ON CONFLICT DO NOTHING so concurrent refreshes cannot duplicate.
package resolution

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres"
	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{
	"id", "entity_type", "entity_id", "issue_type", "priority", "detail",
	"open", "created_at", "updated_at", "resolved_at",
}

type row struct {
	ID         uuid.UUID  `db:"id"`
	EntityType string     `db:"entity_type"`
	EntityID   uuid.UUID  `db:"entity_id"`
	IssueType  string     `db:"issue_type"`
	Priority   int        `db:"priority"`
	Detail     string     `db:"detail"`
	Open       bool       `db:"open"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

func (r row) toDomain() *domain.ResolutionEntry {
	return &domain.ResolutionEntry{
		ID:         r.ID,
		EntityType: domain.EntityType(r.EntityType),
		EntityID:   r.EntityID,
		IssueType:  domain.IssueType(r.IssueType),
		Priority:   r.Priority,
		Detail:     r.Detail,
		Open:       r.Open,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

// Repository provides access to the resolution_queue table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert adds an open entry. A concurrent refresh inserting the same
// key is absorbed by ON CONFLICT DO NOTHING.
func (r *Repository) Insert(ctx context.Context, e *domain.ResolutionEntry) error {
	sql, args, err := builder.
		Insert("resolution_queue").
		Columns("entity_type", "entity_id", "issue_type", "priority", "detail").
		Values(e.EntityType.String(), e.EntityID, e.IssueType.String(), e.Priority, e.Detail).
		Suffix("ON CONFLICT (entity_type, entity_id, issue_type) WHERE open DO NOTHING").
		ToSql()
	if err != nil {
		return postgres.MapOpError(err, "build insert queue entry")
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapOpError(err, "insert queue entry")
	}
	return nil
}

// ListOpen returns all open entries, most urgent first.
func (r *Repository) ListOpen(ctx context.Context) ([]*domain.ResolutionEntry, error) {
	sql, args, err := builder.
		Select(columns...).
		From("resolution_queue").
		Where(squirrel.Eq{"open": true}).
		OrderBy("priority", "created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list open entries")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list open entries")
	}

	out := make([]*domain.ResolutionEntry, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// Close marks entries resolved. Already-closed IDs are left untouched,
// so re-running a refresh is harmless.
func (r *Repository) Close(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := builder.
		Update("resolution_queue").
		Set("open", false).
		Set("resolved_at", at).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": ids, "open": true}).
		ToSql()
	if err != nil {
		return postgres.MapOpError(err, "build close queue entries")
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapOpError(err, "close queue entries")
	}
	return nil
}
