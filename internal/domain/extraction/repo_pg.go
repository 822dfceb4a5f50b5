package extraction

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

// ---------------------------------------------------------------------------
// Medical entities
// ---------------------------------------------------------------------------

type EntityRepoPG struct {
	pool *pgxpool.Pool
}

func NewEntityRepoPG(pool *pgxpool.Pool) *EntityRepoPG {
	return &EntityRepoPG{pool: pool}
}

func (r *EntityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entityCols = `id, case_id, document_id, category, text, icd10_code,
	confidence, page_number, source_text, review_status, original_text,
	edited_by, edited_at, revision, created_at, updated_at`

func scanEntity(row pgx.Row) (*MedicalEntity, error) {
	var e MedicalEntity
	err := row.Scan(
		&e.ID, &e.CaseID, &e.DocumentID, &e.Category, &e.Text, &e.ICD10Code,
		&e.Confidence, &e.PageNumber, &e.SourceText, &e.ReviewStatus, &e.OriginalText,
		&e.EditedBy, &e.EditedAt, &e.Revision, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *EntityRepoPG) Create(ctx context.Context, e *MedicalEntity) error {
	q := fmt.Sprintf(`INSERT INTO medical_entity (case_id, document_id, category,
		text, icd10_code, confidence, page_number, source_text, review_status)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING %s`, entityCols)

	got, err := scanEntity(r.conn(ctx).QueryRow(ctx, q,
		e.CaseID, e.DocumentID, e.Category, e.Text, e.ICD10Code,
		e.Confidence, e.PageNumber, e.SourceText, e.ReviewStatus,
	))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *EntityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalEntity, error) {
	q := fmt.Sprintf("SELECT %s FROM medical_entity WHERE id = $1", entityCols)
	return scanEntity(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *EntityRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MedicalEntity, error) {
	q := fmt.Sprintf("SELECT %s FROM medical_entity WHERE case_id = $1 ORDER BY page_number, created_at", entityCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MedicalEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Update writes the row only when the stored revision still matches
// expectedRevision, bumping it by one. A vanished match is distinguished into
// ErrConflict (row exists at another revision) or ErrNotFound.
func (r *EntityRepoPG) Update(ctx context.Context, e *MedicalEntity, expectedRevision int) error {
	q := fmt.Sprintf(`UPDATE medical_entity SET category = $2, text = $3,
		icd10_code = $4, review_status = $5, original_text = $6,
		edited_by = $7, edited_at = $8, revision = revision + 1, updated_at = NOW()
	WHERE id = $1 AND revision = $9
	RETURNING %s`, entityCols)

	got, err := scanEntity(r.conn(ctx).QueryRow(ctx, q,
		e.ID, e.Category, e.Text, e.ICD10Code, e.ReviewStatus, e.OriginalText,
		e.EditedBy, e.EditedAt, expectedRevision,
	))
	if errors.Is(err, ErrNotFound) {
		var exists bool
		if chkErr := r.conn(ctx).QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM medical_entity WHERE id = $1)", e.ID,
		).Scan(&exists); chkErr != nil {
			return chkErr
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *EntityRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM medical_entity WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Clinical dates
// ---------------------------------------------------------------------------

type DateRepoPG struct {
	pool *pgxpool.Pool
}

func NewDateRepoPG(pool *pgxpool.Pool) *DateRepoPG {
	return &DateRepoPG{pool: pool}
}

func (r *DateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const dateCols = `id, case_id, document_id, date, date_type, description,
	confidence, page_number, source_text, review_status, original_date,
	edited_by, edited_at, revision, created_at, updated_at`

func scanDate(row pgx.Row) (*ClinicalDate, error) {
	var d ClinicalDate
	err := row.Scan(
		&d.ID, &d.CaseID, &d.DocumentID, &d.Date, &d.DateType, &d.Description,
		&d.Confidence, &d.PageNumber, &d.SourceText, &d.ReviewStatus, &d.OriginalDate,
		&d.EditedBy, &d.EditedAt, &d.Revision, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *DateRepoPG) Create(ctx context.Context, d *ClinicalDate) error {
	q := fmt.Sprintf(`INSERT INTO clinical_date (case_id, document_id, date,
		date_type, description, confidence, page_number, source_text, review_status)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING %s`, dateCols)

	got, err := scanDate(r.conn(ctx).QueryRow(ctx, q,
		d.CaseID, d.DocumentID, d.Date, d.DateType, d.Description,
		d.Confidence, d.PageNumber, d.SourceText, d.ReviewStatus,
	))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *DateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalDate, error) {
	q := fmt.Sprintf("SELECT %s FROM clinical_date WHERE id = $1", dateCols)
	return scanDate(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *DateRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*ClinicalDate, error) {
	q := fmt.Sprintf("SELECT %s FROM clinical_date WHERE case_id = $1 ORDER BY date", dateCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ClinicalDate
	for rows.Next() {
		d, err := scanDate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *DateRepoPG) Update(ctx context.Context, d *ClinicalDate, expectedRevision int) error {
	q := fmt.Sprintf(`UPDATE clinical_date SET date = $2, date_type = $3,
		description = $4, review_status = $5, original_date = $6,
		edited_by = $7, edited_at = $8, revision = revision + 1, updated_at = NOW()
	WHERE id = $1 AND revision = $9
	RETURNING %s`, dateCols)

	got, err := scanDate(r.conn(ctx).QueryRow(ctx, q,
		d.ID, d.Date, d.DateType, d.Description, d.ReviewStatus, d.OriginalDate,
		d.EditedBy, d.EditedAt, expectedRevision,
	))
	if errors.Is(err, ErrNotFound) {
		var exists bool
		if chkErr := r.conn(ctx).QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM clinical_date WHERE id = $1)", d.ID,
		).Scan(&exists); chkErr != nil {
			return chkErr
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *DateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM clinical_date WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
