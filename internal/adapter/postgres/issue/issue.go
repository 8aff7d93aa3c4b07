// Package issue persists issues. Issues are never deleted; every state
// change goes through the domain transition table first and is recorded
// in issue_transitions by the transition repository.
package issue

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
	"id", "type", "severity", "state", "client_id", "brand_id", "engagement_id",
	"title", "suppressed", "escalated", "tagged_by", "tagged_at",
	"assigned_to", "assigned_at", "snoozed_until", "watch_deadline",
	"created_at", "updated_at",
}

type row struct {
	ID            uuid.UUID  `db:"id"`
	Type          string     `db:"type"`
	Severity      string     `db:"severity"`
	State         string     `db:"state"`
	ClientID      *uuid.UUID `db:"client_id"`
	BrandID       *uuid.UUID `db:"brand_id"`
	EngagementID  *uuid.UUID `db:"engagement_id"`
	Title         string     `db:"title"`
	Suppressed    bool       `db:"suppressed"`
	Escalated     bool       `db:"escalated"`
	TaggedBy      *string    `db:"tagged_by"`
	TaggedAt      *time.Time `db:"tagged_at"`
	AssignedTo    *string    `db:"assigned_to"`
	AssignedAt    *time.Time `db:"assigned_at"`
	SnoozedUntil  *time.Time `db:"snoozed_until"`
	WatchDeadline *time.Time `db:"watch_deadline"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r row) toDomain() *domain.Issue {
	return &domain.Issue{
		ID:       r.ID,
		Type:     domain.IssueType(r.Type),
		Severity: domain.IssueSeverity(r.Severity),
		State:    domain.IssueState(r.State),
		Scope: domain.Scope{
			ClientID:     r.ClientID,
			BrandID:      r.BrandID,
			EngagementID: r.EngagementID,
		},
		Title:         r.Title,
		Suppressed:    r.Suppressed,
		Escalated:     r.Escalated,
		TaggedBy:      r.TaggedBy,
		TaggedAt:      r.TaggedAt,
		AssignedTo:    r.AssignedTo,
		AssignedAt:    r.AssignedAt,
		SnoozedUntil:  r.SnoozedUntil,
		WatchDeadline: r.WatchDeadline,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func rowsToDomain(rows []row) []*domain.Issue {
	out := make([]*domain.Issue, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out
}

// Repository provides access to the issues table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, i *domain.Issue) (*domain.Issue, error) {
	sql, args, err := builder.
		Insert("issues").
		Columns("type", "severity", "state", "client_id", "brand_id", "engagement_id", "title").
		Values(i.Type.String(), i.Severity.String(), i.State.String(),
			i.Scope.ClientID, i.Scope.BrandID, i.Scope.EngagementID, i.Title).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert issue")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert issue")
	}
	return out.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	sql, args, err := builder.
		Select(columns...).
		From("issues").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "issue", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "issue", id)
	}
	return out.toDomain(), nil
}

// List returns issues matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	query := builder.
		Select(columns...).
		From("issues").
		OrderBy("created_at DESC")

	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = s.String()
		}
		query = query.Where(squirrel.Eq{"state": states})
	}
	if len(f.Severities) > 0 {
		sevs := make([]string, len(f.Severities))
		for i, s := range f.Severities {
			sevs[i] = s.String()
		}
		query = query.Where(squirrel.Eq{"severity": sevs})
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = t.String()
		}
		query = query.Where(squirrel.Eq{"type": types})
	}
	if f.ClientID != nil {
		query = query.Where(squirrel.Eq{"client_id": *f.ClientID})
	}
	if f.Suppressed != nil {
		query = query.Where(squirrel.Eq{"suppressed": *f.Suppressed})
	}
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		query = query.Offset(uint64(f.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list issues")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list issues")
	}
	return rowsToDomain(rows), nil
}

// UpdateState writes a new state plus the timer fields that belong to
// it: snoozed_until for snoozed, watch_deadline for regression_watch.
// Passing nil clears the corresponding field.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, state domain.IssueState, snoozedUntil, watchDeadline *time.Time) error {
	sql, args, err := builder.
		Update("issues").
		Set("state", state.String()).
		Set("snoozed_until", snoozedUntil).
		Set("watch_deadline", watchDeadline).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	return r.exec(ctx, sql, args, id)
}

// UpdateStateFrom writes the new state only when the row is still in
// the expected one. The state guard makes the timer sweeps idempotent
// per row: a second concurrent run matches zero rows and changes
// nothing, and the caller skips its audit append.
func (r *Repository) UpdateStateFrom(ctx context.Context, id uuid.UUID, from, to domain.IssueState, snoozedUntil, watchDeadline *time.Time) (bool, error) {
	sql, args, err := builder.
		Update("issues").
		Set("state", to.String()).
		Set("snoozed_until", snoozedUntil).
		Set("watch_deadline", watchDeadline).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "state": from.String()}).
		ToSql()
	if err != nil {
		return false, postgres.MapError(err, "issue", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "issue", id)
	}
	return tag.RowsAffected() > 0, nil
}

// SetTagged records the first confirmation at the storage level too:
// COALESCE keeps existing values, so a concurrent double-tag cannot
// overwrite the original confirmer.
func (r *Repository) SetTagged(ctx context.Context, id uuid.UUID, actor string, at time.Time) error {
	sql, args, err := builder.
		Update("issues").
		Set("tagged_by", squirrel.Expr("COALESCE(tagged_by, ?)", actor)).
		Set("tagged_at", squirrel.Expr("COALESCE(tagged_at, ?)", at)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	return r.exec(ctx, sql, args, id)
}

// SetAssigned writes the assignee. Unlike tagging, reassignment is
// allowed and overwrites.
func (r *Repository) SetAssigned(ctx context.Context, id uuid.UUID, assignee string, at time.Time) error {
	sql, args, err := builder.
		Update("issues").
		Set("assigned_to", assignee).
		Set("assigned_at", at).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	return r.exec(ctx, sql, args, id)
}

// SetSuppressed flips the suppression flag without touching state.
func (r *Repository) SetSuppressed(ctx context.Context, id uuid.UUID, suppressed bool) error {
	sql, args, err := builder.
		Update("issues").
		Set("suppressed", suppressed).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	return r.exec(ctx, sql, args, id)
}

// SetEscalated flips the escalation flag without touching state.
func (r *Repository) SetEscalated(ctx context.Context, id uuid.UUID, escalated bool) error {
	sql, args, err := builder.
		Update("issues").
		Set("escalated", escalated).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	return r.exec(ctx, sql, args, id)
}

// ListSnoozeExpired returns snoozed issues whose timer elapsed at now.
func (r *Repository) ListSnoozeExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error) {
	sql, args, err := builder.
		Select(columns...).
		From("issues").
		Where(squirrel.Eq{"state": domain.IssueSnoozed.String()}).
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

// ListWatchExpired returns regression-watch issues whose window closed
// at now with no recurrence.
func (r *Repository) ListWatchExpired(ctx context.Context, now time.Time) ([]*domain.Issue, error) {
	sql, args, err := builder.
		Select(columns...).
		From("issues").
		Where(squirrel.Eq{"state": domain.IssueRegressionWatch.String()}).
		Where(squirrel.LtOrEq{"watch_deadline": now}).
		OrderBy("watch_deadline").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list expired watches")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list expired watches")
	}
	return rowsToDomain(rows), nil
}

// ListDetected returns detected issues, for the aggregation sweep.
func (r *Repository) ListDetected(ctx context.Context) ([]*domain.Issue, error) {
	sql, args, err := builder.
		Select(columns...).
		From("issues").
		Where(squirrel.Eq{"state": domain.IssueDetected.String()}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list detected issues")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list detected issues")
	}
	return rowsToDomain(rows), nil
}

func (r *Repository) exec(ctx context.Context, sql string, args []any, id uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "issue", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "issue", id)
	}
	return nil
}
