package timeline

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores manual timeline events. Derived events are never
// persisted; they are projected from their source collections on read.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
