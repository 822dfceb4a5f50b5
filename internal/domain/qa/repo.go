package qa

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists QA workflow state. Stage records are seeded once per
// case and updated in place as the workflow advances.
type Repository interface {
	CreateStatus(ctx context.Context, s *QAStatus) error
	GetStatusByCase(ctx context.Context, caseID uuid.UUID) (*QAStatus, error)
	UpdateStatus(ctx context.Context, s *QAStatus) error

	CreateStageRecords(ctx context.Context, records []*StageRecord) error
	ListStages(ctx context.Context, caseID uuid.UUID) ([]*StageRecord, error)
	UpdateStage(ctx context.Context, r *StageRecord) error

	CreateIssue(ctx context.Context, i *Issue) error
	GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error)
	ListIssuesByCase(ctx context.Context, caseID uuid.UUID) ([]*Issue, error)
	UpdateIssue(ctx context.Context, i *Issue) error
	CountUnresolvedCritical(ctx context.Context, caseID uuid.UUID) (int, error)
}
