package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

// Document is one uploaded case file and the outcome of its analysis.
type Document struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CaseID        uuid.UUID `db:"case_id" json:"case_id"`
	BlobID        string    `db:"blob_id" json:"blob_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	ContentType   string    `db:"content_type" json:"content_type"`
	Size          int64     `db:"size" json:"size"`
	Status        string    `db:"status" json:"status"` // uploaded, analyzing, analyzed, failed
	DocumentType  string    `db:"document_type" json:"document_type,omitempty"`
	OCRConfidence float64   `db:"ocr_confidence" json:"ocr_confidence,omitempty"`
	QualityScore  float64   `db:"quality_score" json:"quality_score,omitempty"`
	PageCount     int       `db:"page_count" json:"page_count,omitempty"`
	UploadedBy    string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// UploadSummary is returned from the single-step upload-and-analyze flow.
type UploadSummary struct {
	Document          *Document `json:"document"`
	EntitiesExtracted int       `json:"entities_extracted"`
	DatesExtracted    int       `json:"dates_extracted"`
	AnalysisError     string    `json:"analysis_error,omitempty"`
}
