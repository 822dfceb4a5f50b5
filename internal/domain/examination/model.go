package examination

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("examination not found")

// Examination is the physician's in-person evaluation session for a case.
type Examination struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CaseID      uuid.UUID `db:"case_id" json:"case_id"`
	ExamDate    time.Time `db:"exam_date" json:"exam_date"`
	Location    string    `db:"location" json:"location,omitempty"`
	Demeanor    string    `db:"demeanor" json:"demeanor,omitempty"`
	Reliability string    `db:"reliability" json:"reliability"` // reliable, questionable, unreliable
	Status      string    `db:"status" json:"status"`           // in_progress, completed, reviewed
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ROMMeasurement is one range-of-motion reading taken during the exam.
// Degrees are 0-360, pain is the 0-10 scale.
type ROMMeasurement struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ExaminationID uuid.UUID `db:"examination_id" json:"examination_id"`
	Joint         string    `db:"joint" json:"joint"`
	Movement      string    `db:"movement" json:"movement"`
	ActiveROM     float64   `db:"active_rom" json:"active_rom"`
	PassiveROM    float64   `db:"passive_rom" json:"passive_rom"`
	NormalROM     float64   `db:"normal_rom" json:"normal_rom"`
	PainLevel     int       `db:"pain_level" json:"pain_level"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// StrengthTest is one manual muscle test, graded on the 0-5 scale.
type StrengthTest struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ExaminationID uuid.UUID `db:"examination_id" json:"examination_id"`
	MuscleGroup   string    `db:"muscle_group" json:"muscle_group"`
	Side          string    `db:"side" json:"side,omitempty"` // left, right, bilateral
	Grade         int       `db:"grade" json:"grade"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SpecialTest is one provocative orthopedic or neurological test.
type SpecialTest struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ExaminationID uuid.UUID `db:"examination_id" json:"examination_id"`
	TestName      string    `db:"test_name" json:"test_name"`
	Result        string    `db:"result" json:"result"` // positive, negative, equivocal
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Detail aggregates an examination with all of its findings.
type Detail struct {
	Examination   *Examination      `json:"examination"`
	ROM           []*ROMMeasurement `json:"rom_measurements"`
	StrengthTests []*StrengthTest   `json:"strength_tests"`
	SpecialTests  []*SpecialTest    `json:"special_tests"`
}
