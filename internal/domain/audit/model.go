package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is one immutable record of a clinical data mutation. Entries
// are only ever appended; corrections to the data produce new entries rather
// than touching old ones.
type AuditLogEntry struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	CaseID           uuid.UUID       `db:"case_id" json:"case_id"`
	Action           string          `db:"action" json:"action"` // update, revert, approve, reject, delete
	ResourceType     string          `db:"resource_type" json:"resource_type"`
	ResourceID       uuid.UUID       `db:"resource_id" json:"resource_id"`
	FieldName        string          `db:"field_name" json:"field_name,omitempty"`
	Reason           string          `db:"reason" json:"reason,omitempty"`
	OldValue         json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue         json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	ConfidenceBefore *float64        `db:"confidence_before" json:"confidence_before,omitempty"`
	ConfidenceAfter  *float64        `db:"confidence_after" json:"confidence_after,omitempty"`
	ActorID          string          `db:"actor_id" json:"actor_id"`
	ActorName        string          `db:"actor_name" json:"actor_name,omitempty"`
	IPAddress        string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent        string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Change describes one mutation for Record. FieldName names the edited
// field(s), Reason carries the reviewer's free-text justification where the
// action allows one (reject, revert).
type Change struct {
	Action       string
	ResourceType string
	ResourceID   uuid.UUID
	FieldName    string
	Reason       string
	OldValue     interface{}
	NewValue     interface{}
}

// RevertEligible reports whether this entry represents a value change that a
// reviewer can revert. Only plain updates qualify; approvals, rejections and
// deletions have no prior value to restore through the trail.
func (e *AuditLogEntry) RevertEligible() bool {
	return e.Action == "update"
}
