package reports

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

const reportCols = `id, case_id, type, status, title, finalized_date, reviewer_id,
	created_by, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.CaseID, &rep.Type, &rep.Status, &rep.Title,
		&rep.FinalizedDate, &rep.ReviewerID, &rep.CreatedBy, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rep, err
}

func (r *RepoPG) Create(ctx context.Context, rep *Report) error {
	q := fmt.Sprintf(`INSERT INTO report (case_id, type, status, title, created_by)
	VALUES ($1,$2,$3,$4,$5) RETURNING %s`, reportCols)
	got, err := scanReport(r.conn(ctx).QueryRow(ctx, q,
		rep.CaseID, rep.Type, rep.Status, rep.Title, rep.CreatedBy))
	if err != nil {
		return err
	}
	*rep = *got
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	q := fmt.Sprintf("SELECT %s FROM report WHERE id = $1", reportCols)
	return scanReport(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Report, error) {
	q := fmt.Sprintf("SELECT %s FROM report WHERE case_id = $1 ORDER BY created_at DESC", reportCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	return items, rows.Err()
}

func (r *RepoPG) Update(ctx context.Context, rep *Report) error {
	q := fmt.Sprintf(`UPDATE report SET status = $2, title = $3, finalized_date = $4,
		reviewer_id = $5, updated_at = NOW()
	WHERE id = $1 RETURNING %s`, reportCols)
	got, err := scanReport(r.conn(ctx).QueryRow(ctx, q,
		rep.ID, rep.Status, rep.Title, rep.FinalizedDate, rep.ReviewerID))
	if err != nil {
		return err
	}
	*rep = *got
	return nil
}

const sectionCols = `id, report_id, title, content, position, auto_generated,
	created_at, updated_at`

func scanSection(row pgx.Row) (*Section, error) {
	var s Section
	err := row.Scan(&s.ID, &s.ReportID, &s.Title, &s.Content, &s.Position,
		&s.AutoGenerated, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *RepoPG) CreateSection(ctx context.Context, s *Section) error {
	q := fmt.Sprintf(`INSERT INTO report_section (report_id, title, content, position,
		auto_generated)
	VALUES ($1,$2,$3,$4,$5) RETURNING %s`, sectionCols)
	got, err := scanSection(r.conn(ctx).QueryRow(ctx, q,
		s.ReportID, s.Title, s.Content, s.Position, s.AutoGenerated))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

func (r *RepoPG) ListSections(ctx context.Context, reportID uuid.UUID) ([]*Section, error) {
	q := fmt.Sprintf("SELECT %s FROM report_section WHERE report_id = $1 ORDER BY position", sectionCols)
	rows, err := r.conn(ctx).Query(ctx, q, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *RepoPG) UpdateSection(ctx context.Context, s *Section) error {
	q := fmt.Sprintf(`UPDATE report_section SET title = $2, content = $3, position = $4,
		updated_at = NOW()
	WHERE id = $1 RETURNING %s`, sectionCols)
	got, err := scanSection(r.conn(ctx).QueryRow(ctx, q, s.ID, s.Title, s.Content, s.Position))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

func (r *RepoPG) DeleteSections(ctx context.Context, reportID uuid.UUID, autoGeneratedOnly bool) error {
	q := "DELETE FROM report_section WHERE report_id = $1"
	if autoGeneratedOnly {
		q += " AND auto_generated"
	}
	_, err := r.conn(ctx).Exec(ctx, q, reportID)
	return err
}
