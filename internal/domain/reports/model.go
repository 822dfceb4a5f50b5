package reports

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("report not found")
	// ErrInvalidTransition is returned for a status move the report
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid report status transition")
)

// Report is one written work product for a case.
type Report struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CaseID        uuid.UUID  `db:"case_id" json:"case_id"`
	Type          string     `db:"type" json:"type"`     // pre_exam, ime, addendum, supplemental
	Status        string     `db:"status" json:"status"` // draft, review, finalized, sent
	Title         string     `db:"title" json:"title"`
	FinalizedDate *time.Time `db:"finalized_date" json:"finalized_date,omitempty"`
	ReviewerID    *string    `db:"reviewer_id" json:"reviewer_id,omitempty"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Section is one ordered block of report content. Auto-generated sections are
// assembled from case data and can be regenerated; manual sections are
// physician-authored.
type Section struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ReportID      uuid.UUID `db:"report_id" json:"report_id"`
	Title         string    `db:"title" json:"title"`
	Content       string    `db:"content" json:"content"`
	Position      int       `db:"position" json:"position"`
	AutoGenerated bool      `db:"auto_generated" json:"auto_generated"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Detail is a report with its ordered sections.
type Detail struct {
	Report   *Report    `json:"report"`
	Sections []*Section `json:"sections"`
}
