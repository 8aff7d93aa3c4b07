// Package inbox persists inbox items. The partial unique index on
// (underlying_kind, underlying_id) over active states is the race-proof
// enforcement of at-most-one-active-proposal; Create surfaces its
// violation as domain.ErrAlreadyExists.
package inbox

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
	"id", "item_type", "state", "underlying_kind", "underlying_id",
	"client_id", "brand_id", "engagement_id", "source", "rule", "title",
	"suppression_key", "snoozed_until", "resolved_at", "resolved_issue_id",
	"created_at", "updated_at",
}

type row struct {
	ID              uuid.UUID  `db:"id"`
	ItemType        string     `db:"item_type"`
	State           string     `db:"state"`
	UnderlyingKind  string     `db:"underlying_kind"`
	UnderlyingID    uuid.UUID  `db:"underlying_id"`
	ClientID        *uuid.UUID `db:"client_id"`
	BrandID         *uuid.UUID `db:"brand_id"`
	EngagementID    *uuid.UUID `db:"engagement_id"`
	Source          string     `db:"source"`
	Rule            string     `db:"rule"`
	Title           string     `db:"title"`
	SuppressionKey  string     `db:"suppression_key"`
	SnoozedUntil    *time.Time `db:"snoozed_until"`
	ResolvedAt      *time.Time `db:"resolved_at"`
	ResolvedIssueID *uuid.UUID `db:"resolved_issue_id"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r row) toDomain() *domain.InboxItem {
	var underlying domain.Underlying
	if domain.UnderlyingKind(r.UnderlyingKind) == domain.UnderlyingKindIssue {
		underlying = domain.UnderlyingIssue(r.UnderlyingID)
	} else {
		underlying = domain.UnderlyingSignal(r.UnderlyingID)
	}
	return &domain.InboxItem{
		ID:         r.ID,
		Type:       domain.InboxItemType(r.ItemType),
		State:      domain.InboxState(r.State),
		Underlying: underlying,
		Scope: domain.Scope{
			ClientID:     r.ClientID,
			BrandID:      r.BrandID,
			EngagementID: r.EngagementID,
		},
		Source:          r.Source,
		Rule:            r.Rule,
		Title:           r.Title,
		SuppressionKey:  r.SuppressionKey,
		SnoozedUntil:    r.SnoozedUntil,
		ResolvedAt:      r.ResolvedAt,
		ResolvedIssueID: r.ResolvedIssueID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func rowsToDomain(rows []row) []*domain.InboxItem {
	out := make([]*domain.InboxItem, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out
}

// Repository provides access to the inbox_items table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a proposal. A second active proposal for the same
// underlying entity violates the partial unique index and comes back as
// domain.ErrAlreadyExists.
func (r *Repository) Create(ctx context.Context, it *domain.InboxItem) (*domain.InboxItem, error) {
	sql, args, err := builder.
		Insert("inbox_items").
		Columns("item_type", "state", "underlying_kind", "underlying_id",
			"client_id", "brand_id", "engagement_id", "source", "rule", "title",
			"suppression_key").
		Values(it.Type.String(), it.State.String(),
			string(it.Underlying.Kind()), it.Underlying.ID(),
			it.Scope.ClientID, it.Scope.BrandID, it.Scope.EngagementID,
			it.Source, it.Rule, it.Title, it.SuppressionKey).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert inbox item")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert inbox item")
	}
	return out.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
	sql, args, err := builder.
		Select(columns...).
		From("inbox_items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "inbox item", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "inbox item", id)
	}
	return out.toDomain(), nil
}

// GetActiveByUnderlying returns the active (proposed or snoozed) item
// wrapping the given entity, or domain.ErrNotFound.
func (r *Repository) GetActiveByUnderlying(ctx context.Context, u domain.Underlying) (*domain.InboxItem, error) {
	sql, args, err := builder.
		Select(columns...).
		From("inbox_items").
		Where(squirrel.Eq{
			"underlying_kind": string(u.Kind()),
			"underlying_id":   u.ID(),
			"state": []string{
				domain.InboxProposed.String(),
				domain.InboxSnoozed.String(),
			},
		}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "inbox item", u.ID())
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "inbox item", u.ID())
	}
	return out.toDomain(), nil
}

// List returns inbox items matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f domain.InboxFilter) ([]*domain.InboxItem, error) {
	query := builder.
		Select(columns...).
		From("inbox_items").
		OrderBy("created_at DESC")

	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = s.String()
		}
		query = query.Where(squirrel.Eq{"state": states})
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = t.String()
		}
		query = query.Where(squirrel.Eq{"item_type": types})
	}
	if f.ClientID != nil {
		query = query.Where(squirrel.Eq{"client_id": *f.ClientID})
	}
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		query = query.Offset(uint64(f.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list inbox items")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list inbox items")
	}
	return rowsToDomain(rows), nil
}

// MarkLinked moves the item into the linked_to_issue terminal state.
func (r *Repository) MarkLinked(ctx context.Context, id, issueID uuid.UUID, at time.Time) error {
	sql, args, err := builder.
		Update("inbox_items").
		Set("state", domain.InboxLinkedToIssue.String()).
		Set("resolved_at", at).
		Set("resolved_issue_id", issueID).
		Set("snoozed_until", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "inbox item", id)
	}
	return r.exec(ctx, sql, args, id)
}

// MarkDismissed moves the item into the dismissed terminal state.
func (r *Repository) MarkDismissed(ctx context.Context, id uuid.UUID, at time.Time) error {
	sql, args, err := builder.
		Update("inbox_items").
		Set("state", domain.InboxDismissed.String()).
		Set("resolved_at", at).
		Set("snoozed_until", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "inbox item", id)
	}
	return r.exec(ctx, sql, args, id)
}

// MarkSnoozed sets the snooze timer.
func (r *Repository) MarkSnoozed(ctx context.Context, id uuid.UUID, until time.Time) error {
	sql, args, err := builder.
		Update("inbox_items").
		Set("state", domain.InboxSnoozed.String()).
		Set("snoozed_until", until).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "inbox item", id)
	}
	return r.exec(ctx, sql, args, id)
}

// ReturnToProposed clears the snooze and re-proposes the item. The
// state guard makes the expiry sweep idempotent per row: a second
// concurrent run matches zero rows and changes nothing.
func (r *Repository) ReturnToProposed(ctx context.Context, id uuid.UUID) (bool, error) {
	sql, args, err := builder.
		Update("inbox_items").
		Set("state", domain.InboxProposed.String()).
		Set("snoozed_until", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "state": domain.InboxSnoozed.String()}).
		ToSql()
	if err != nil {
		return false, postgres.MapError(err, "inbox item", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "inbox item", id)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSnoozeExpired returns snoozed items whose timer elapsed at now.
func (r *Repository) ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.InboxItem, error) {
	sql, args, err := builder.
		Select(columns...).
		From("inbox_items").
		Where(squirrel.Eq{"state": domain.InboxSnoozed.String()}).
		Where(squirrel.LtOrEq{"snoozed_until": now}).
		OrderBy("snoozed_until").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list expired snoozes")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list expired snoozes")
	}
	return rowsToDomain(rows), nil
}

func (r *Repository) exec(ctx context.Context, sql string, args []any, id uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "inbox item", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "inbox item", id)
	}
	return nil
}
