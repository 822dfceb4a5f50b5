// Package analyzer wraps the external document intelligence service that
// performs OCR and medical NLP on uploaded case documents. The service is a
// managed dependency; this package only defines the request/response shapes
// the review workflow depends on and an HTTP client for the hosted API.
package analyzer

import (
	"context"
)

// ExtractedEntity is one medical entity found in a document.
type ExtractedEntity struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"` // diagnosis, medication, procedure, symptom
	ICD10Code  string  `json:"icd10_code,omitempty"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number"`
	SourceText string  `json:"source_text,omitempty"`
}

// ExtractedDate is one clinical date found in a document.
type ExtractedDate struct {
	Date       string  `json:"date"` // ISO 8601 calendar date
	DateType   string  `json:"date_type"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number"`
	SourceText string  `json:"source_text,omitempty"`
}

// Result is the complete output of one document analysis.
type Result struct {
	DocumentType  string            `json:"document_type"`
	OCRText       string            `json:"ocr_text"`
	OCRConfidence float64           `json:"ocr_confidence"`
	PageCount     int               `json:"page_count"`
	QualityScore  float64           `json:"quality_score"`
	Entities      []ExtractedEntity `json:"medical_entities"`
	Dates         []ExtractedDate   `json:"clinical_dates"`
}

// Request carries one document to analyze.
type Request struct {
	FileName    string
	ContentType string
	Data        []byte
	// TypeHint optionally tells the service what kind of document this is
	// (progress note, operative report, ...).
	TypeHint string
}

// Analyzer analyzes a single document. Implementations must honor ctx
// cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}
