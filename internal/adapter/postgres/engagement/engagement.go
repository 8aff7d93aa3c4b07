// Package engagement persists engagements and applies the derived
// client updates the normalizer produces.
package engagement

import (
	"context"
	"strings"
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
	"id", "brand_id", "client_id", "name", "type", "state", "is_internal",
	"created_at", "updated_at",
}

type row struct {
	ID         uuid.UUID  `db:"id"`
	BrandID    *uuid.UUID `db:"brand_id"`
	ClientID   *uuid.UUID `db:"client_id"`
	Name       string     `db:"name"`
	Type       string     `db:"type"`
	State      string     `db:"state"`
	IsInternal bool       `db:"is_internal"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r row) toDomain() *domain.Engagement {
	return &domain.Engagement{
		ID:         r.ID,
		BrandID:    r.BrandID,
		ClientID:   r.ClientID,
		Name:       r.Name,
		Type:       domain.EngagementType(r.Type),
		State:      domain.EngagementState(r.State),
		IsInternal: r.IsInternal,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Repository provides access to the engagements table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, e *domain.Engagement) (*domain.Engagement, error) {
	sql, args, err := builder.
		Insert("engagements").
		Columns("brand_id", "client_id", "name", "type", "state", "is_internal").
		Values(e.BrandID, e.ClientID, e.Name, e.Type.String(), e.State.String(), e.IsInternal).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert engagement")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert engagement")
	}
	return out.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Engagement, error) {
	sql, args, err := builder.
		Select(columns...).
		From("engagements").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "engagement", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "engagement", id)
	}
	return out.toDomain(), nil
}

// List returns every engagement, for snapshot loads.
func (r *Repository) List(ctx context.Context) ([]*domain.Engagement, error) {
	sql, args, err := builder.
		Select(columns...).
		From("engagements").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list engagements")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list engagements")
	}

	out := make([]*domain.Engagement, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// UpdateDerivedClient writes the normalizer's derived client_id.
func (r *Repository) UpdateDerivedClient(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) error {
	sql, args, err := builder.
		Update("engagements").
		Set("client_id", clientID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "engagement", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "engagement", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "engagement", id)
	}
	return nil
}

// UpdateState writes a new lifecycle state. Legality is checked by the
// domain transition table before this is called.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, state domain.EngagementState) error {
	sql, args, err := builder.
		Update("engagements").
		Set("state", state.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "engagement", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "engagement", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "engagement", id)
	}
	return nil
}

