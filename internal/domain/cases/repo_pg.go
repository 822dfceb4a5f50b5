package cases

import (
	"context"
	"fmt"
	"strings"

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

type CaseRepoPG struct {
	pool *pgxpool.Pool
}

func NewCaseRepoPG(pool *pgxpool.Pool) *CaseRepoPG {
	return &CaseRepoPG{pool: pool}
}

func (r *CaseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const caseCols = `id, case_number, status, priority,
	patient_first_name, patient_last_name, patient_dob, patient_ssn_last4,
	injury_date, injury_mechanism, injury_body_region, requesting_party,
	exam_date, report_due_date, assigned_physician_id, assigned_assistant_id,
	notes, tags, created_by, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.Status, &c.Priority,
		&c.PatientFirstName, &c.PatientLastName, &c.PatientDOB, &c.PatientSSNLast4,
		&c.InjuryDate, &c.InjuryMechanism, &c.InjuryBodyRegion, &c.RequestingParty,
		&c.ExamDate, &c.ReportDueDate, &c.AssignedPhysicianID, &c.AssignedAssistantID,
		&c.Notes, &c.Tags, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	return &c, err
}

func (r *CaseRepoPG) Create(ctx context.Context, c *Case) error {
	q := fmt.Sprintf(`INSERT INTO ime_case (case_number, status, priority,
		patient_first_name, patient_last_name, patient_dob, patient_ssn_last4,
		injury_date, injury_mechanism, injury_body_region, requesting_party,
		exam_date, report_due_date, assigned_physician_id, assigned_assistant_id,
		notes, tags, created_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	RETURNING %s`, caseCols)

	got, err := scanCase(r.conn(ctx).QueryRow(ctx, q,
		c.CaseNumber, c.Status, c.Priority,
		c.PatientFirstName, c.PatientLastName, c.PatientDOB, c.PatientSSNLast4,
		c.InjuryDate, c.InjuryMechanism, c.InjuryBodyRegion, c.RequestingParty,
		c.ExamDate, c.ReportDueDate, c.AssignedPhysicianID, c.AssignedAssistantID,
		c.Notes, c.Tags, c.CreatedBy,
	))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

func (r *CaseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	q := fmt.Sprintf("SELECT %s FROM ime_case WHERE id = $1", caseCols)
	return scanCase(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *CaseRepoPG) Update(ctx context.Context, c *Case) error {
	q := fmt.Sprintf(`UPDATE ime_case SET status = $2, priority = $3,
		patient_first_name = $4, patient_last_name = $5, patient_dob = $6,
		injury_date = $7, injury_mechanism = $8, injury_body_region = $9,
		requesting_party = $10, exam_date = $11, report_due_date = $12,
		assigned_physician_id = $13, assigned_assistant_id = $14,
		notes = $15, tags = $16, updated_at = NOW()
	WHERE id = $1
	RETURNING %s`, caseCols)

	got, err := scanCase(r.conn(ctx).QueryRow(ctx, q,
		c.ID, c.Status, c.Priority,
		c.PatientFirstName, c.PatientLastName, c.PatientDOB,
		c.InjuryDate, c.InjuryMechanism, c.InjuryBodyRegion,
		c.RequestingParty, c.ExamDate, c.ReportDueDate,
		c.AssignedPhysicianID, c.AssignedAssistantID,
		c.Notes, c.Tags,
	))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

func (r *CaseRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Case, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if v, ok := params["status"]; ok {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["priority"]; ok {
		where = append(where, fmt.Sprintf("priority = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["physician"]; ok {
		where = append(where, fmt.Sprintf("assigned_physician_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["patient"]; ok {
		where = append(where, fmt.Sprintf("(patient_first_name ILIKE $%d OR patient_last_name ILIKE $%d)", idx, idx))
		args = append(args, "%"+v+"%")
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM ime_case %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM ime_case %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		caseCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *CaseRepoPG) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('case_number_seq')`).Scan(&seq)
	return seq, err
}
