package examination

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
)

var validReliabilities = map[string]bool{
	"reliable": true, "questionable": true, "unreliable": true,
}

var validExamStatuses = map[string]bool{
	"in_progress": true, "completed": true, "reviewed": true,
}

var validTestResults = map[string]bool{
	"positive": true, "negative": true, "equivocal": true,
}

var validSides = map[string]bool{
	"left": true, "right": true, "bilateral": true,
}

type Service struct {
	repo  Repository
	cache *cache.Collection
}

func NewService(repo Repository, cc *cache.Collection) *Service {
	return &Service{repo: repo, cache: cc}
}

func (s *Service) CreateExamination(ctx context.Context, e *Examination) error {
	if e.ExamDate.IsZero() {
		return fmt.Errorf("exam_date is required")
	}
	if e.Reliability == "" {
		e.Reliability = "reliable"
	}
	if !validReliabilities[e.Reliability] {
		return fmt.Errorf("invalid reliability: %s", e.Reliability)
	}
	if e.Status == "" {
		e.Status = "in_progress"
	}
	if !validExamStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	e.CreatedBy = auth.UserIDFromContext(ctx)

	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ExamsKey(e.CaseID.String()))
	return nil
}

func (s *Service) UpdateExamination(ctx context.Context, e *Examination) error {
	if e.Reliability != "" && !validReliabilities[e.Reliability] {
		return fmt.Errorf("invalid reliability: %s", e.Reliability)
	}
	if e.Status != "" && !validExamStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ExamsKey(e.CaseID.String()))
	return nil
}

func (s *Service) GetExamination(ctx context.Context, id uuid.UUID) (*Examination, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Examination, error) {
	var items []*Examination
	err := s.cache.GetOrLoad(ctx, cache.ExamsKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByCase(ctx, caseID)
	})
	return items, err
}

// GetDetail aggregates the examination with every recorded finding.
func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rom, err := s.repo.ListROM(ctx, id)
	if err != nil {
		return nil, err
	}
	strength, err := s.repo.ListStrengthTests(ctx, id)
	if err != nil {
		return nil, err
	}
	special, err := s.repo.ListSpecialTests(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Examination:   exam,
		ROM:           rom,
		StrengthTests: strength,
		SpecialTests:  special,
	}, nil
}

func (s *Service) AddROM(ctx context.Context, examID uuid.UUID, m *ROMMeasurement) error {
	if m.Joint == "" || m.Movement == "" {
		return fmt.Errorf("joint and movement are required")
	}
	for name, deg := range map[string]float64{
		"active_rom": m.ActiveROM, "passive_rom": m.PassiveROM, "normal_rom": m.NormalROM,
	} {
		if deg < 0 || deg > 360 {
			return fmt.Errorf("%s must be between 0 and 360 degrees", name)
		}
	}
	if m.PainLevel < 0 || m.PainLevel > 10 {
		return fmt.Errorf("pain_level must be between 0 and 10")
	}
	exam, err := s.repo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	m.ExaminationID = examID
	if err := s.repo.AddROM(ctx, m); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ExamsKey(exam.CaseID.String()))
	return nil
}

func (s *Service) AddStrengthTest(ctx context.Context, examID uuid.UUID, t *StrengthTest) error {
	if t.MuscleGroup == "" {
		return fmt.Errorf("muscle_group is required")
	}
	if t.Grade < 0 || t.Grade > 5 {
		return fmt.Errorf("grade must be between 0 and 5")
	}
	if t.Side != "" && !validSides[t.Side] {
		return fmt.Errorf("invalid side: %s", t.Side)
	}
	exam, err := s.repo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	t.ExaminationID = examID
	if err := s.repo.AddStrengthTest(ctx, t); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ExamsKey(exam.CaseID.String()))
	return nil
}

func (s *Service) AddSpecialTest(ctx context.Context, examID uuid.UUID, t *SpecialTest) error {
	if t.TestName == "" {
		return fmt.Errorf("test_name is required")
	}
	if !validTestResults[t.Result] {
		return fmt.Errorf("invalid result: %s", t.Result)
	}
	exam, err := s.repo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	t.ExaminationID = examID
	if err := s.repo.AddSpecialTest(ctx, t); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ExamsKey(exam.CaseID.String()))
	return nil
}
