// Package task persists tasks and the derived link fields the
// normalizer maintains on them.
package task

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
	"id", "project_id", "brand_id", "client_id", "name", "is_completed",
	"due_at", "project_link_status", "client_link_status", "created_at", "updated_at",
}

type row struct {
	ID                uuid.UUID  `db:"id"`
	ProjectID         *uuid.UUID `db:"project_id"`
	BrandID           *uuid.UUID `db:"brand_id"`
	ClientID          *uuid.UUID `db:"client_id"`
	Name              string     `db:"name"`
	IsCompleted       bool       `db:"is_completed"`
	DueAt             *time.Time `db:"due_at"`
	ProjectLinkStatus string     `db:"project_link_status"`
	ClientLinkStatus  string     `db:"client_link_status"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (r row) toDomain() *domain.Task {
	return &domain.Task{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		BrandID:           r.BrandID,
		ClientID:          r.ClientID,
		Name:              r.Name,
		IsCompleted:       r.IsCompleted,
		DueAt:             r.DueAt,
		ProjectLinkStatus: domain.ProjectLinkStatus(r.ProjectLinkStatus),
		ClientLinkStatus:  domain.ClientLinkStatus(r.ClientLinkStatus),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// Repository provides access to the tasks table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	sql, args, err := builder.
		Insert("tasks").
		Columns("project_id", "name", "is_completed", "due_at").
		Values(t.ProjectID, t.Name, t.IsCompleted, t.DueAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert task")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert task")
	}
	return out.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	sql, args, err := builder.
		Select(columns...).
		From("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "task", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "task", id)
	}
	return out.toDomain(), nil
}

// List returns every task, for normalizer and gate snapshot loads.
func (r *Repository) List(ctx context.Context) ([]*domain.Task, error) {
	sql, args, err := builder.
		Select(columns...).
		From("tasks").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list tasks")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list tasks")
	}

	out := make([]*domain.Task, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// UpdateDerived writes the normalizer's recomputed fields for one task.
func (r *Repository) UpdateDerived(
	ctx context.Context,
	id uuid.UUID,
	brandID, clientID *uuid.UUID,
	projectStatus domain.ProjectLinkStatus,
	clientStatus domain.ClientLinkStatus,
) error {
	sql, args, err := builder.
		Update("tasks").
		Set("brand_id", brandID).
		Set("client_id", clientID).
		Set("project_link_status", projectStatus.String()).
		Set("client_link_status", clientStatus.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "task", id)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "task", id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(domain.ErrNotFound, "task", id)
	}
	return nil
}
