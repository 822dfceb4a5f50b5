package extraction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the referenced entity or date does not
	// exist.
	ErrNotFound = errors.New("extraction item not found")
	// ErrConflict is returned when an update carries a stale revision. The
	// row is left unchanged; the caller must re-fetch and retry.
	ErrConflict = errors.New("revision conflict")
	// ErrNoOriginal is returned by revert when the item was never edited, so
	// there is no preserved AI value to restore.
	ErrNoOriginal = errors.New("no original value recorded")
	// ErrInvalidInput wraps request validation failures so handlers can map
	// them to a client error instead of a server one.
	ErrInvalidInput = errors.New("invalid input")
)

// MedicalEntity is one AI-extracted medical fact (diagnosis, medication,
// procedure or symptom) attached to a case document. The first time a
// physician edits the text, the AI value is copied into OriginalText and kept
// there across further edits.
type MedicalEntity struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CaseID       uuid.UUID  `db:"case_id" json:"case_id"`
	DocumentID   uuid.UUID  `db:"document_id" json:"document_id"`
	Category     string     `db:"category" json:"category"`
	Text         string     `db:"text" json:"text"`
	ICD10Code    string     `db:"icd10_code" json:"icd10_code,omitempty"`
	Confidence   float64    `db:"confidence" json:"confidence"`
	PageNumber   int        `db:"page_number" json:"page_number,omitempty"`
	SourceText   string     `db:"source_text" json:"source_text,omitempty"`
	ReviewStatus string     `db:"review_status" json:"review_status"`
	OriginalText *string    `db:"original_text" json:"original_text,omitempty"`
	EditedBy     *string    `db:"edited_by" json:"edited_by,omitempty"`
	EditedAt     *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	Revision     int        `db:"revision" json:"revision"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ClinicalDate is one AI-extracted date of clinical significance.
type ClinicalDate struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CaseID       uuid.UUID  `db:"case_id" json:"case_id"`
	DocumentID   uuid.UUID  `db:"document_id" json:"document_id"`
	Date         time.Time  `db:"date" json:"date"`
	DateType     string     `db:"date_type" json:"date_type"`
	Description  string     `db:"description" json:"description,omitempty"`
	Confidence   float64    `db:"confidence" json:"confidence"`
	PageNumber   int        `db:"page_number" json:"page_number,omitempty"`
	SourceText   string     `db:"source_text" json:"source_text,omitempty"`
	ReviewStatus string     `db:"review_status" json:"review_status"`
	OriginalDate *time.Time `db:"original_date" json:"original_date,omitempty"`
	EditedBy     *string    `db:"edited_by" json:"edited_by,omitempty"`
	EditedAt     *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	Revision     int        `db:"revision" json:"revision"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// EntityUpdate is the edit command for a medical entity. Revision must match
// the revision the caller last read or the update is rejected with
// ErrConflict.
type EntityUpdate struct {
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	ICD10Code string `json:"icd10_code,omitempty"`
	Revision  int    `json:"revision"`
}

// DateUpdate is the edit command for a clinical date.
type DateUpdate struct {
	Date        time.Time `json:"date"`
	DateType    string    `json:"date_type,omitempty"`
	Description string    `json:"description,omitempty"`
	Revision    int       `json:"revision"`
}
