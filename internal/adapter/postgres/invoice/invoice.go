// Package invoice persists billing records. Aging buckets are derived
// in the domain per evaluation and never stored.
package invoice

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
	"id", "client_id", "number", "amount_cents", "status", "due_at", "paid_at",
	"created_at", "updated_at",
}

type row struct {
	ID          uuid.UUID  `db:"id"`
	ClientID    *uuid.UUID `db:"client_id"`
	Number      string     `db:"number"`
	AmountCents int64      `db:"amount_cents"`
	Status      string     `db:"status"`
	DueAt       *time.Time `db:"due_at"`
	PaidAt      *time.Time `db:"paid_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r row) toDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Number:      r.Number,
		AmountCents: r.AmountCents,
		Status:      domain.InvoiceStatus(r.Status),
		DueAt:       r.DueAt,
		PaidAt:      r.PaidAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Repository provides access to the invoices table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	sql, args, err := builder.
		Insert("invoices").
		Columns("client_id", "number", "amount_cents", "status", "due_at", "paid_at").
		Values(inv.ClientID, inv.Number, inv.AmountCents, inv.Status.String(), inv.DueAt, inv.PaidAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert invoice")
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert invoice")
	}
	return out.toDomain(), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	sql, args, err := builder.
		Select(columns...).
		From("invoices").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "invoice", id)
	}

	var out row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, "invoice", id)
	}
	return out.toDomain(), nil
}

// List returns every invoice, for gate and queue snapshot loads.
func (r *Repository) List(ctx context.Context) ([]*domain.Invoice, error) {
	sql, args, err := builder.
		Select(columns...).
		From("invoices").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list invoices")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list invoices")
	}

	out := make([]*domain.Invoice, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// ListByClient returns every invoice for one client, for the AR ratio
// denominators in health scoring.
func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Invoice, error) {
	sql, args, err := builder.
		Select(columns...).
		From("invoices").
		Where(squirrel.Eq{"client_id": clientID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list client invoices")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list client invoices")
	}

	out := make([]*domain.Invoice, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// ListOpenByClient returns the open invoices for one client, for health
// scoring.
func (r *Repository) ListOpenByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Invoice, error) {
	sql, args, err := builder.
		Select(columns...).
		From("invoices").
		Where(squirrel.Eq{"client_id": clientID, "status": domain.InvoiceOpen.String()}).
		OrderBy("due_at NULLS LAST").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list open invoices")
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list open invoices")
	}

	out := make([]*domain.Invoice, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}
