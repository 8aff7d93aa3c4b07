// Package transition appends audit rows to the per-lifecycle transition
// logs. The tables are append-only; nothing here updates or deletes.
package transition

import (
	"context"
	"fmt"
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

type row struct {
	ID        uuid.UUID `db:"id"`
	EntityID  uuid.UUID `db:"entity_id"`
	FromState string    `db:"from_state"`
	ToState   string    `db:"to_state"`
	Action    string    `db:"action"`
	Reason    string    `db:"reason"`
	Actor     string    `db:"actor"`
	Note      *string   `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

// Repository appends to and reads the transition logs.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// tableFor maps an entity type to its transition log.
func tableFor(entity domain.EntityType) (table, fkColumn string, err error) {
	switch entity {
	case domain.EntityTypeIssue:
		return "issue_transitions", "issue_id", nil
	case domain.EntityTypeInboxItem:
		return "inbox_transitions", "inbox_item_id", nil
	case domain.EntityTypeEngagement:
		return "engagement_transitions", "engagement_id", nil
	default:
		return "", "", fmt.Errorf("%w: no transition log for entity type %q", domain.ErrValidation, entity)
	}
}

// Append records one transition.
func (r *Repository) Append(ctx context.Context, rec *domain.TransitionRecord) error {
	table, fk, err := tableFor(rec.EntityType)
	if err != nil {
		return err
	}

	sql, args, err := builder.
		Insert(table).
		Columns(fk, "from_state", "to_state", "action", "reason", "actor", "note").
		Values(rec.EntityID, rec.FromState, rec.ToState, rec.Action,
			rec.Reason.String(), rec.Actor, rec.Note).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "transition", rec.EntityID)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "transition", rec.EntityID)
	}
	return nil
}

// ListByEntity returns an entity's transitions in order of occurrence.
func (r *Repository) ListByEntity(ctx context.Context, entity domain.EntityType, entityID uuid.UUID) ([]*domain.TransitionRecord, error) {
	table, fk, err := tableFor(entity)
	if err != nil {
		return nil, err
	}

	cols := []string{
		"id", fk + " AS entity_id", "from_state", "to_state", "action",
		"reason", "actor", "note", "created_at",
	}
	sql, args, err := builder.
		Select(strings.Join(cols, ", ")).
		From(table).
		Where(squirrel.Eq{fk: entityID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "transitions", entityID)
	}

	var rows []row
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "transitions", entityID)
	}

	out := make([]*domain.TransitionRecord, len(rows))
	for i, rw := range rows {
		out[i] = &domain.TransitionRecord{
			ID:         rw.ID,
			EntityType: entity,
			EntityID:   rw.EntityID,
			FromState:  rw.FromState,
			ToState:    rw.ToState,
			Action:     rw.Action,
			Reason:     domain.TransitionReason(rw.Reason),
			Actor:      rw.Actor,
			Note:       rw.Note,
			CreatedAt:  rw.CreatedAt,
		}
	}
	return out, nil
}
