// Package account persists clients and brands, the roots of the
// derivation chain. Both repositories are read-mostly: rows arrive from
// ingestion and the engine only ever reads them back for snapshots.
package account

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

var clientColumns = []string{"id", "name", "tier", "created_at", "updated_at"}

type clientRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Tier      string    `db:"tier"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r clientRow) toDomain() *domain.Client {
	return &domain.Client{
		ID:        r.ID,
		Name:      r.Name,
		Tier:      domain.ClientTier(r.Tier),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ClientRepository provides access to the clients table.
type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	sql, args, err := builder.
		Insert("clients").
		Columns("name", "tier").
		Values(c.Name, c.Tier.String()).
		Suffix("RETURNING " + joinColumns(clientColumns)).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert client")
	}

	var row clientRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert client")
	}
	return row.toDomain(), nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	sql, args, err := builder.
		Select(clientColumns...).
		From("clients").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "client", id)
	}

	var row clientRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return nil, postgres.MapError(err, "client", id)
	}
	return row.toDomain(), nil
}

// List returns every client, for snapshot loads.
func (r *ClientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	sql, args, err := builder.
		Select(clientColumns...).
		From("clients").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list clients")
	}

	var rows []clientRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list clients")
	}

	out := make([]*domain.Client, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

var brandColumns = []string{"id", "client_id", "name", "created_at", "updated_at"}

type brandRow struct {
	ID        uuid.UUID `db:"id"`
	ClientID  uuid.UUID `db:"client_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r brandRow) toDomain() *domain.Brand {
	return &domain.Brand{
		ID:        r.ID,
		ClientID:  r.ClientID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// BrandRepository provides access to the brands table.
type BrandRepository struct {
	pool *pgxpool.Pool
}

func NewBrandRepository(pool *pgxpool.Pool) *BrandRepository {
	return &BrandRepository{pool: pool}
}

func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) (*domain.Brand, error) {
	sql, args, err := builder.
		Insert("brands").
		Columns("client_id", "name").
		Values(b.ClientID, b.Name).
		Suffix("RETURNING " + joinColumns(brandColumns)).
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build insert brand")
	}

	var row brandRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "insert brand")
	}
	return row.toDomain(), nil
}

func (r *BrandRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	sql, args, err := builder.
		Select(brandColumns...).
		From("brands").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "brand", id)
	}

	var row brandRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return nil, postgres.MapError(err, "brand", id)
	}
	return row.toDomain(), nil
}

// List returns every brand, for snapshot loads.
func (r *BrandRepository) List(ctx context.Context) ([]*domain.Brand, error) {
	sql, args, err := builder.
		Select(brandColumns...).
		From("brands").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapOpError(err, "build list brands")
	}

	var rows []brandRow
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapOpError(err, "list brands")
	}

	out := make([]*domain.Brand, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
