// Package suppression persists the dedup fences created on dismiss.
// Enforcement reads the live rule set at propose time; revoking a rule
// deletes it and immediately re-enables proposals.
package suppression

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientpulse/clientpulse-backend/internal/adapter/postgres"
	"github.com/clientpulse/clientpulse-backend/internal/domain"
)

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{"suppression_key", "item_type", "created_at", "expires_at"}

type row struct {
	SuppressionKey string    `db:"suppression_key"`
	ItemType       string    `db:"item_type"`
	CreatedAt      time.Time `db:"created_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}

func (r row) toDomain() *domain.SuppressionRule {
	return &domain.SuppressionRule{
		Key:       r.SuppressionKey,
		ItemType:  domain.InboxItemType(r.ItemType),
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

// Repository provides access to the suppression_rules table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores a rule. A re-dismiss of the same identity extends the
// expiry rather than failing on the duplicate key.
func (r *Repository) Upsert(ctx context.Context, rule *domain.SuppressionRule) error {
	sql, args, err := builder.
		Insert("suppression_rules").
		Columns("suppression_key", "item_type", "expires_at").
		Values(rule.Key, rule.ItemType.String(), rule.ExpiresAt).
		Suffix("ON CONFLICT (suppression_key) DO UPDATE SET expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return postgres.MapOpError(err, "build upsert suppression rule")
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapOpError(err, "upsert suppression rule")
	}
	return nil
}

// GetLive returns the unexpired rule for the key, or domain.ErrNotFound
// when no live rule suppresses it.
func (r *Repository) GetLive(ctx context.Context, key string, now time.Time) (*domain.SuppressionRule, error) {
	sql, args, err := builder.
		Select(columns...).
		From("suppression_rules").
		Where(squirrel.Eq{"suppression_key": key}).
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build get suppression rule")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "get suppression rule")
	}
	return out.toDomain(), nil
}

// Delete revokes a rule.
func (r *Repository) Delete(ctx context.Context, key string) error {
	sql, args, err := builder.
		Delete("suppression_rules").
		Where(squirrel.Eq{"suppression_key": key}).
		ToSql()
	if err != nil {
		return postgres.MapOpError(err, "build delete suppression rule")
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapOpError(err, "delete suppression rule")
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapOpError(domain.ErrNotFound, "delete suppression rule")
	}
	return nil
}

// DeleteExpired removes rules whose window has closed. Run by the
// periodic sweep; safe to run repeatedly.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := builder.
		Delete("suppression_rules").
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, postgres.MapOpError(err, "build delete expired rules")
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapOpError(err, "delete expired rules")
	}
	return tag.RowsAffected(), nil
}
