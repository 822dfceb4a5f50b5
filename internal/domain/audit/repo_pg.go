package audit

import (
	"context"
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

const auditCols = `id, case_id, action, resource_type, resource_id, field_name, reason,
	old_value, new_value, confidence_before, confidence_after,
	actor_id, actor_name, ip_address, user_agent, created_at`

func scanEntry(row pgx.Row) (*AuditLogEntry, error) {
	var e AuditLogEntry
	err := row.Scan(
		&e.ID, &e.CaseID, &e.Action, &e.ResourceType, &e.ResourceID,
		&e.FieldName, &e.Reason, &e.OldValue, &e.NewValue,
		&e.ConfidenceBefore, &e.ConfidenceAfter, &e.ActorID, &e.ActorName,
		&e.IPAddress, &e.UserAgent, &e.CreatedAt,
	)
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *AuditLogEntry) error {
	q := fmt.Sprintf(`INSERT INTO audit_log (case_id, action, resource_type,
		resource_id, field_name, reason, old_value, new_value,
		confidence_before, confidence_after, actor_id, actor_name, ip_address, user_agent)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	RETURNING %s`, auditCols)

	got, err := scanEntry(r.conn(ctx).QueryRow(ctx, q,
		e.CaseID, e.Action, e.ResourceType, e.ResourceID, e.FieldName, e.Reason,
		e.OldValue, e.NewValue, e.ConfidenceBefore, e.ConfidenceAfter,
		e.ActorID, e.ActorName, e.IPAddress, e.UserAgent,
	))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *RepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*AuditLogEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM audit_log WHERE case_id = $1 ORDER BY created_at DESC", auditCols)
	return r.list(ctx, q, caseID)
}

func (r *RepoPG) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*AuditLogEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM audit_log WHERE resource_type = $1 AND resource_id = $2 ORDER BY created_at DESC", auditCols)
	return r.list(ctx, q, resourceType, resourceID)
}

func (r *RepoPG) list(ctx context.Context, q string, args ...interface{}) ([]*AuditLogEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AuditLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
