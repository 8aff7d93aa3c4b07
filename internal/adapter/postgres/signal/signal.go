// Package signal persists detector observations. Signals are immutable
// after creation except for the dismissed flag and, for ambiguous
// signals, a one-time scope resolution.
package signal

import (
	"context"
	"encoding/json"
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
	"id", "client_id", "brand_id", "engagement_id", "sentiment",
	"rule_triggered", "source", "evidence", "dismissed", "observed_at", "created_at",
}

type row struct {
	ID            uuid.UUID       `db:"id"`
	ClientID      *uuid.UUID      `db:"client_id"`
	BrandID       *uuid.UUID      `db:"brand_id"`
	EngagementID  *uuid.UUID      `db:"engagement_id"`
	Sentiment     string          `db:"sentiment"`
	RuleTriggered string          `db:"rule_triggered"`
	Source        string          `db:"source"`
	Evidence      json.RawMessage `db:"evidence"`
	Dismissed     bool            `db:"dismissed"`
	ObservedAt    time.Time       `db:"observed_at"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r row) toDomain() (*domain.Signal, error) {
	var ev domain.Evidence
	if len(r.Evidence) > 0 {
		if err := json.Unmarshal(r.Evidence, &ev); err != nil {
			return nil, postgres.MapError(err, "signal evidence", r.ID)
		}
	}
	return &domain.Signal{
		ID: r.ID,
		Scope: domain.Scope{
			ClientID:     r.ClientID,
			BrandID:      r.BrandID,
			EngagementID: r.EngagementID,
		},
		Sentiment:     domain.Sentiment(r.Sentiment),
		RuleTriggered: r.RuleTriggered,
		Source:        r.Source,
		Evidence:      ev,
		Dismissed:     r.Dismissed,
		ObservedAt:    r.ObservedAt,
		CreatedAt:     r.CreatedAt,
	}, nil
}

// Repository provides access to the signals table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, s *domain.Signal) (*domain.Signal, error) {
	evidence, err := json.Marshal(s.Evidence)
	if err != nil {
		return nil, postgres.MapOpError(err, "marshal signal evidence")
	}

	sql, args, err := builder.
		Insert("signals").
		Columns("client_id", "brand_id", "engagement_id", "sentiment",
			"rule_triggered", "source", "evidence", "observed_at").
		Values(s.Scope.ClientID, s.Scope.BrandID, s.Scope.EngagementID,
			s.Sentiment.String(), s.RuleTriggered, s.Source, evidence, s.ObservedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert signal")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert signal")
	}
	return out.toDomain()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Signal, error) {
	sql, args, err := builder.
		Select(columns...).
		From("signals").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "signal", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "signal", id)
	}
	return out.toDomain()
}

// CountUndismissed counts the live signals within a scope. An empty
// rule counts across all rules. The aggregation sweep compares this
// against the surface threshold.
func (r *Repository) CountUndismissed(ctx context.Context, scope domain.Scope, rule string) (int, error) {
	where := squirrel.Eq{"dismissed": false}
	if rule != "" {
		where["rule_triggered"] = rule
	}
	switch {
	case scope.EngagementID != nil:
		where["engagement_id"] = *scope.EngagementID
	case scope.BrandID != nil:
		where["brand_id"] = *scope.BrandID
	case scope.ClientID != nil:
		where["client_id"] = *scope.ClientID
	}

	sql, args, err := builder.
		Select("count(*)").
		From("signals").
		Where(where).
		ToSql()
	if err != nil {
		return 0, postgres.MapOpError(err, "build count signals")
	}

	var count int
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, postgres.MapOpError(err, "count signals")
	}
	return count, nil
}

// SetDismissed flips the dismissed flag, the only mutable field on a
// stored signal.
func (r *Repository) SetDismissed(ctx context.Context, id uuid.UUID, dismissed bool) error {
	sql, args, err := builder.
		Update("signals").
		Set("dismissed", dismissed).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "signal", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "signal", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "signal", id)
	}
	return nil
}

// ResolveScope writes the scope a user selected for an ambiguous signal.
func (r *Repository) ResolveScope(ctx context.Context, id uuid.UUID, scope domain.Scope) error {
	sql, args, err := builder.
		Update("signals").
		Set("client_id", scope.ClientID).
		Set("brand_id", scope.BrandID).
		Set("engagement_id", scope.EngagementID).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "signal", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "signal", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "signal", id)
	}
	return nil
}
