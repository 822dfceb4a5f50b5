package reports

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Report, error)
	Update(ctx context.Context, r *Report) error

	CreateSection(ctx context.Context, s *Section) error
	ListSections(ctx context.Context, reportID uuid.UUID) ([]*Section, error)
	UpdateSection(ctx context.Context, s *Section) error
	DeleteSections(ctx context.Context, reportID uuid.UUID, autoGeneratedOnly bool) error
}
