package qa

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

const statusCols = `id, case_id, current_stage, rejection_reason, created_at, updated_at`

func scanStatus(row pgx.Row) (*QAStatus, error) {
	var s QAStatus
	err := row.Scan(&s.ID, &s.CaseID, &s.CurrentStage, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *RepoPG) CreateStatus(ctx context.Context, s *QAStatus) error {
	q := fmt.Sprintf(`INSERT INTO qa_status (case_id, current_stage)
	VALUES ($1, $2) RETURNING %s`, statusCols)
	got, err := scanStatus(r.conn(ctx).QueryRow(ctx, q, s.CaseID, s.CurrentStage))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

func (r *RepoPG) GetStatusByCase(ctx context.Context, caseID uuid.UUID) (*QAStatus, error) {
	q := fmt.Sprintf("SELECT %s FROM qa_status WHERE case_id = $1", statusCols)
	return scanStatus(r.conn(ctx).QueryRow(ctx, q, caseID))
}

func (r *RepoPG) UpdateStatus(ctx context.Context, s *QAStatus) error {
	q := fmt.Sprintf(`UPDATE qa_status SET current_stage = $2, rejection_reason = $3,
		updated_at = NOW()
	WHERE id = $1 RETURNING %s`, statusCols)
	got, err := scanStatus(r.conn(ctx).QueryRow(ctx, q, s.ID, s.CurrentStage, s.RejectionReason))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

const stageCols = `id, case_id, stage, status, completed_at, completed_by, notes, created_at, updated_at`

func scanStage(row pgx.Row) (*StageRecord, error) {
	var s StageRecord
	err := row.Scan(&s.ID, &s.CaseID, &s.Stage, &s.Status, &s.CompletedAt, &s.CompletedBy,
		&s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *RepoPG) CreateStageRecords(ctx context.Context, records []*StageRecord) error {
	q := fmt.Sprintf(`INSERT INTO qa_stage (case_id, stage, status)
	VALUES ($1, $2, $3) RETURNING %s`, stageCols)
	for _, rec := range records {
		got, err := scanStage(r.conn(ctx).QueryRow(ctx, q, rec.CaseID, rec.Stage, rec.Status))
		if err != nil {
			return err
		}
		*rec = *got
	}
	return nil
}

func (r *RepoPG) ListStages(ctx context.Context, caseID uuid.UUID) ([]*StageRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM qa_stage WHERE case_id = $1 ORDER BY created_at", stageCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StageRecord
	for rows.Next() {
		rec, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *RepoPG) UpdateStage(ctx context.Context, rec *StageRecord) error {
	q := fmt.Sprintf(`UPDATE qa_stage SET status = $2, completed_at = $3,
		completed_by = $4, notes = $5, updated_at = NOW()
	WHERE id = $1 RETURNING %s`, stageCols)
	got, err := scanStage(r.conn(ctx).QueryRow(ctx, q,
		rec.ID, rec.Status, rec.CompletedAt, rec.CompletedBy, rec.Notes))
	if err != nil {
		return err
	}
	*rec = *got
	return nil
}

const issueCols = `id, case_id, stage, category, severity, description, suggestion,
	resolved, resolved_by, resolved_at, created_at`

func scanIssue(row pgx.Row) (*Issue, error) {
	var i Issue
	err := row.Scan(&i.ID, &i.CaseID, &i.Stage, &i.Category, &i.Severity, &i.Description,
		&i.Suggestion, &i.Resolved, &i.ResolvedBy, &i.ResolvedAt, &i.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &i, err
}

func (r *RepoPG) CreateIssue(ctx context.Context, i *Issue) error {
	q := fmt.Sprintf(`INSERT INTO qa_issue (case_id, stage, category, severity,
		description, suggestion)
	VALUES ($1,$2,$3,$4,$5,$6) RETURNING %s`, issueCols)
	got, err := scanIssue(r.conn(ctx).QueryRow(ctx, q,
		i.CaseID, i.Stage, i.Category, i.Severity, i.Description, i.Suggestion))
	if err != nil {
		return err
	}
	*i = *got
	return nil
}

func (r *RepoPG) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	q := fmt.Sprintf("SELECT %s FROM qa_issue WHERE id = $1", issueCols)
	return scanIssue(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListIssuesByCase(ctx context.Context, caseID uuid.UUID) ([]*Issue, error) {
	q := fmt.Sprintf("SELECT %s FROM qa_issue WHERE case_id = $1 ORDER BY created_at DESC", issueCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *RepoPG) UpdateIssue(ctx context.Context, i *Issue) error {
	q := fmt.Sprintf(`UPDATE qa_issue SET resolved = $2, resolved_by = $3,
		resolved_at = $4
	WHERE id = $1 RETURNING %s`, issueCols)
	got, err := scanIssue(r.conn(ctx).QueryRow(ctx, q, i.ID, i.Resolved, i.ResolvedBy, i.ResolvedAt))
	if err != nil {
		return err
	}
	*i = *got
	return nil
}

func (r *RepoPG) CountUnresolvedCritical(ctx context.Context, caseID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM qa_issue WHERE case_id = $1 AND severity = 'critical' AND NOT resolved`,
		caseID).Scan(&n)
	return n, err
}
