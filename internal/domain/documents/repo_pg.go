package documents

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

const documentCols = `id, case_id, blob_id, file_name, content_type, size, status,
	document_type, ocr_confidence, quality_score, page_count, uploaded_by,
	created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.CaseID, &d.BlobID, &d.FileName, &d.ContentType, &d.Size, &d.Status,
		&d.DocumentType, &d.OCRConfidence, &d.QualityScore, &d.PageCount, &d.UploadedBy,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *RepoPG) Create(ctx context.Context, d *Document) error {
	q := fmt.Sprintf(`INSERT INTO document (case_id, blob_id, file_name, content_type,
		size, status, uploaded_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7)
	RETURNING %s`, documentCols)

	got, err := scanDocument(r.conn(ctx).QueryRow(ctx, q,
		d.CaseID, d.BlobID, d.FileName, d.ContentType, d.Size, d.Status, d.UploadedBy,
	))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	q := fmt.Sprintf("SELECT %s FROM document WHERE id = $1", documentCols)
	return scanDocument(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error) {
	q := fmt.Sprintf("SELECT %s FROM document WHERE case_id = $1 ORDER BY created_at DESC", documentCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *RepoPG) Update(ctx context.Context, d *Document) error {
	q := fmt.Sprintf(`UPDATE document SET status = $2, document_type = $3,
		ocr_confidence = $4, quality_score = $5, page_count = $6, updated_at = NOW()
	WHERE id = $1 RETURNING %s`, documentCols)

	got, err := scanDocument(r.conn(ctx).QueryRow(ctx, q,
		d.ID, d.Status, d.DocumentType, d.OCRConfidence, d.QualityScore, d.PageCount,
	))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM document WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
