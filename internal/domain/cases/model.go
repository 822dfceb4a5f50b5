package cases

import (
	"time"

	"github.com/google/uuid"
)

// Case is one independent medical evaluation engagement.
type Case struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	CaseNumber          string     `db:"case_number" json:"case_number"`
	Status              string     `db:"status" json:"status"`
	Priority            string     `db:"priority" json:"priority"`
	PatientFirstName    string     `db:"patient_first_name" json:"patient_first_name"`
	PatientLastName     string     `db:"patient_last_name" json:"patient_last_name"`
	PatientDOB          *time.Time `db:"patient_dob" json:"patient_dob,omitempty"`
	PatientSSNLast4     string     `db:"patient_ssn_last4" json:"patient_ssn_last4,omitempty"`
	InjuryDate          *time.Time `db:"injury_date" json:"injury_date,omitempty"`
	InjuryMechanism     string     `db:"injury_mechanism" json:"injury_mechanism,omitempty"`
	InjuryBodyRegion    []string   `db:"injury_body_region" json:"injury_body_region,omitempty"`
	RequestingParty     string     `db:"requesting_party" json:"requesting_party,omitempty"`
	ExamDate            *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	ReportDueDate       *time.Time `db:"report_due_date" json:"report_due_date,omitempty"`
	AssignedPhysicianID *uuid.UUID `db:"assigned_physician_id" json:"assigned_physician_id,omitempty"`
	AssignedAssistantID *uuid.UUID `db:"assigned_assistant_id" json:"assigned_assistant_id,omitempty"`
	Notes               string     `db:"notes" json:"notes,omitempty"`
	Tags                []string   `db:"tags" json:"tags,omitempty"`
	CreatedBy           string     `db:"created_by" json:"created_by"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// StatusChange requests a case status transition.
type StatusChange struct {
	NewStatus string `json:"new_status"`
	Notes     string `json:"notes,omitempty"`
}

// Assignment attaches a user to a case in a given role.
type Assignment struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"` // physician, medical_assistant
}
