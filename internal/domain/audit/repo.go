package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is append-only: entries can be created and read, never updated
// or deleted. The interface deliberately has no mutation of existing rows.
type Repository interface {
	Create(ctx context.Context, e *AuditLogEntry) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*AuditLogEntry, error)
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*AuditLogEntry, error)
}
