package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicase/medicase/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, case_id, event_date, type, title, description, severity,
	milestone, source, source_id, created_by, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.CaseID, &e.EventDate, &e.Type, &e.Title, &e.Description,
		&e.Severity, &e.Milestone, &e.Source, &e.SourceID, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *Event) error {
	q := fmt.Sprintf(`INSERT INTO timeline_event (case_id, event_date, type, title,
		description, severity, milestone, source, source_id, created_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING %s`, eventCols)
	got, err := scanEvent(r.conn(ctx).QueryRow(ctx, q,
		e.CaseID, e.EventDate, e.Type, e.Title, e.Description, e.Severity,
		e.Milestone, e.Source, e.SourceID, e.CreatedBy))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *RepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Event, error) {
	q := fmt.Sprintf("SELECT %s FROM timeline_event WHERE case_id = $1 ORDER BY event_date", eventCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM timeline_event WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
