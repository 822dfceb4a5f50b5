package extraction

import (
	"context"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/audit"
)

// EntityRepository persists medical entities. Update must match the expected
// revision and return ErrConflict when the stored revision differs.
type EntityRepository interface {
	Create(ctx context.Context, e *MedicalEntity) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalEntity, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MedicalEntity, error)
	Update(ctx context.Context, e *MedicalEntity, expectedRevision int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DateRepository persists clinical dates with the same revision contract.
type DateRepository interface {
	Create(ctx context.Context, d *ClinicalDate) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalDate, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*ClinicalDate, error)
	Update(ctx context.Context, d *ClinicalDate, expectedRevision int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Recorder appends one audit entry per extraction mutation. Implemented by
// the audit service; actor and network details come from the request context.
type Recorder interface {
	Record(ctx context.Context, caseID uuid.UUID, ch audit.Change) error
}
