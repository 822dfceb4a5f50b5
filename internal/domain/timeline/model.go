package timeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("timeline event not found")

// Event is one point on the case's clinical timeline. Manual events are
// physician-entered; derived events are projected from approved clinical
// dates and completed examinations at read time.
type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CaseID      uuid.UUID  `db:"case_id" json:"case_id"`
	EventDate   time.Time  `db:"event_date" json:"event_date"`
	Type        string     `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Severity    string     `db:"severity" json:"severity,omitempty"` // minor, moderate, major
	Milestone   bool       `db:"milestone" json:"milestone"`
	Source      string     `db:"source" json:"source"` // document, examination, manual
	SourceID    *uuid.UUID `db:"source_id" json:"source_id,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
