package examination

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

const examCols = `id, case_id, exam_date, location, demeanor, reliability, status,
	notes, created_by, created_at, updated_at`

func scanExam(row pgx.Row) (*Examination, error) {
	var e Examination
	err := row.Scan(&e.ID, &e.CaseID, &e.ExamDate, &e.Location, &e.Demeanor,
		&e.Reliability, &e.Status, &e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *Examination) error {
	q := fmt.Sprintf(`INSERT INTO examination (case_id, exam_date, location, demeanor,
		reliability, status, notes, created_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING %s`, examCols)
	got, err := scanExam(r.conn(ctx).QueryRow(ctx, q,
		e.CaseID, e.ExamDate, e.Location, e.Demeanor, e.Reliability, e.Status, e.Notes, e.CreatedBy))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Examination, error) {
	q := fmt.Sprintf("SELECT %s FROM examination WHERE id = $1", examCols)
	return scanExam(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Examination, error) {
	q := fmt.Sprintf("SELECT %s FROM examination WHERE case_id = $1 ORDER BY exam_date DESC", examCols)
	rows, err := r.conn(ctx).Query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Examination
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *RepoPG) Update(ctx context.Context, e *Examination) error {
	q := fmt.Sprintf(`UPDATE examination SET exam_date = $2, location = $3,
		demeanor = $4, reliability = $5, status = $6, notes = $7, updated_at = NOW()
	WHERE id = $1 RETURNING %s`, examCols)
	got, err := scanExam(r.conn(ctx).QueryRow(ctx, q,
		e.ID, e.ExamDate, e.Location, e.Demeanor, e.Reliability, e.Status, e.Notes))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

func (r *RepoPG) AddROM(ctx context.Context, m *ROMMeasurement) error {
	q := `INSERT INTO rom_measurement (examination_id, joint, movement, active_rom,
		passive_rom, normal_rom, pain_level, notes)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, q,
		m.ExaminationID, m.Joint, m.Movement, m.ActiveROM, m.PassiveROM,
		m.NormalROM, m.PainLevel, m.Notes,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *RepoPG) ListROM(ctx context.Context, examID uuid.UUID) ([]*ROMMeasurement, error) {
	q := `SELECT id, examination_id, joint, movement, active_rom, passive_rom,
		normal_rom, pain_level, notes, created_at
	FROM rom_measurement WHERE examination_id = $1 ORDER BY created_at`
	rows, err := r.conn(ctx).Query(ctx, q, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ROMMeasurement
	for rows.Next() {
		var m ROMMeasurement
		if err := rows.Scan(&m.ID, &m.ExaminationID, &m.Joint, &m.Movement,
			&m.ActiveROM, &m.PassiveROM, &m.NormalROM, &m.PainLevel, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *RepoPG) AddStrengthTest(ctx context.Context, t *StrengthTest) error {
	q := `INSERT INTO strength_test (examination_id, muscle_group, side, grade, notes)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, q,
		t.ExaminationID, t.MuscleGroup, t.Side, t.Grade, t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *RepoPG) ListStrengthTests(ctx context.Context, examID uuid.UUID) ([]*StrengthTest, error) {
	q := `SELECT id, examination_id, muscle_group, side, grade, notes, created_at
	FROM strength_test WHERE examination_id = $1 ORDER BY created_at`
	rows, err := r.conn(ctx).Query(ctx, q, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StrengthTest
	for rows.Next() {
		var t StrengthTest
		if err := rows.Scan(&t.ID, &t.ExaminationID, &t.MuscleGroup, &t.Side,
			&t.Grade, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *RepoPG) AddSpecialTest(ctx context.Context, t *SpecialTest) error {
	q := `INSERT INTO special_test (examination_id, test_name, result, notes)
	VALUES ($1,$2,$3,$4)
	RETURNING id, created_at`
	return r.conn(ctx).QueryRow(ctx, q,
		t.ExaminationID, t.TestName, t.Result, t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *RepoPG) ListSpecialTests(ctx context.Context, examID uuid.UUID) ([]*SpecialTest, error) {
	q := `SELECT id, examination_id, test_name, result, notes, created_at
	FROM special_test WHERE examination_id = $1 ORDER BY created_at`
	rows, err := r.conn(ctx).Query(ctx, q, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SpecialTest
	for rows.Next() {
		var t SpecialTest
		if err := rows.Scan(&t.ID, &t.ExaminationID, &t.TestName, &t.Result,
			&t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}
