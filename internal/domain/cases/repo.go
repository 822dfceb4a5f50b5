package cases

import (
	"context"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Case, int, error)
	NextSequence(ctx context.Context) (int64, error)
}
