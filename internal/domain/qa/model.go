package qa

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no QA record exists for the reference.
	ErrNotFound = errors.New("qa record not found")
	// ErrStageBlocked is returned when an advance is rejected by the stage
	// gate. Nothing is mutated on a blocked advance.
	ErrStageBlocked = errors.New("stage gate blocked: unresolved critical issues")
	// ErrTerminal is returned when the workflow already finished, either
	// fully approved or rejected.
	ErrTerminal = errors.New("qa workflow is in a terminal state")
)

// Stages in order. A case walks them forward only; there is no edge back to
// an earlier stage.
var Stages = []string{
	"data_extraction_review",
	"manual_validation",
	"clinical_review",
	"compliance_check",
	"final_approval",
}

// StageRejected is the terminal state entered when a reviewer rejects the
// case out of the QA workflow.
const StageRejected = "rejected"

var validIssueCategories = map[string]bool{
	"data_quality": true, "completeness": true, "accuracy": true, "compliance": true,
}

var validIssueSeverities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

// QAStatus is the case's position in the QA workflow.
type QAStatus struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CaseID          uuid.UUID `db:"case_id" json:"case_id"`
	CurrentStage    string    `db:"current_stage" json:"current_stage"`
	RejectionReason string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the workflow already ended in rejection.
func (s *QAStatus) Terminal() bool {
	return s.CurrentStage == StageRejected
}

// StageRecord tracks one stage's progress for a case.
type StageRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CaseID      uuid.UUID  `db:"case_id" json:"case_id"`
	Stage       string     `db:"stage" json:"stage"`
	Status      string     `db:"status" json:"status"` // pending, in_progress, completed, failed
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Issue is one QA finding raised against the case during any stage.
type Issue struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CaseID      uuid.UUID  `db:"case_id" json:"case_id"`
	Stage       string     `db:"stage" json:"stage"`
	Category    string     `db:"category" json:"category"`
	Severity    string     `db:"severity" json:"severity"`
	Description string     `db:"description" json:"description"`
	Suggestion  string     `db:"suggestion" json:"suggestion,omitempty"`
	Resolved    bool       `db:"resolved" json:"resolved"`
	ResolvedBy  *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Overview is the QA dashboard projection: workflow position, per-stage
// records, the flattened issue list and derived scores.
type Overview struct {
	Status            *QAStatus      `json:"status"`
	Stages            []*StageRecord `json:"stages"`
	Issues            []*Issue       `json:"issues"`
	CompletionPercent float64        `json:"completion_percent"`
	QualityScore      float64        `json:"quality_score"`
	UnresolvedCritical int           `json:"unresolved_critical"`
}

// StageIndex returns the position of a stage in the ordered sequence, or -1
// for unknown stages (including rejected).
func StageIndex(stage string) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}
