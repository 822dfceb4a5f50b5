package examination

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Examination) error
	GetByID(ctx context.Context, id uuid.UUID) (*Examination, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Examination, error)
	Update(ctx context.Context, e *Examination) error

	AddROM(ctx context.Context, m *ROMMeasurement) error
	ListROM(ctx context.Context, examID uuid.UUID) ([]*ROMMeasurement, error)
	AddStrengthTest(ctx context.Context, t *StrengthTest) error
	ListStrengthTests(ctx context.Context, examID uuid.UUID) ([]*StrengthTest, error)
	AddSpecialTest(ctx context.Context, t *SpecialTest) error
	ListSpecialTests(ctx context.Context, examID uuid.UUID) ([]*SpecialTest, error)
}
