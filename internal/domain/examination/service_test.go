package examination

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/platform/cache"
)

type mockExamRepo struct {
	exams    map[uuid.UUID]*Examination
	rom      map[uuid.UUID][]*ROMMeasurement
	strength map[uuid.UUID][]*StrengthTest
	special  map[uuid.UUID][]*SpecialTest
}

func newMockExamRepo() *mockExamRepo {
	return &mockExamRepo{
		exams:    make(map[uuid.UUID]*Examination),
		rom:      make(map[uuid.UUID][]*ROMMeasurement),
		strength: make(map[uuid.UUID][]*StrengthTest),
		special:  make(map[uuid.UUID][]*SpecialTest),
	}
}

func (m *mockExamRepo) Create(_ context.Context, e *Examination) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.exams[e.ID] = e
	return nil
}

func (m *mockExamRepo) GetByID(_ context.Context, id uuid.UUID) (*Examination, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *mockExamRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*Examination, error) {
	var items []*Examination
	for _, e := range m.exams {
		if e.CaseID == caseID {
			items = append(items, e)
		}
	}
	return items, nil
}

func (m *mockExamRepo) Update(_ context.Context, e *Examination) error {
	if _, ok := m.exams[e.ID]; !ok {
		return ErrNotFound
	}
	m.exams[e.ID] = e
	return nil
}

func (m *mockExamRepo) AddROM(_ context.Context, r *ROMMeasurement) error {
	r.ID = uuid.New()
	m.rom[r.ExaminationID] = append(m.rom[r.ExaminationID], r)
	return nil
}

func (m *mockExamRepo) ListROM(_ context.Context, examID uuid.UUID) ([]*ROMMeasurement, error) {
	return m.rom[examID], nil
}

func (m *mockExamRepo) AddStrengthTest(_ context.Context, t *StrengthTest) error {
	t.ID = uuid.New()
	m.strength[t.ExaminationID] = append(m.strength[t.ExaminationID], t)
	return nil
}

func (m *mockExamRepo) ListStrengthTests(_ context.Context, examID uuid.UUID) ([]*StrengthTest, error) {
	return m.strength[examID], nil
}

func (m *mockExamRepo) AddSpecialTest(_ context.Context, t *SpecialTest) error {
	t.ID = uuid.New()
	m.special[t.ExaminationID] = append(m.special[t.ExaminationID], t)
	return nil
}

func (m *mockExamRepo) ListSpecialTests(_ context.Context, examID uuid.UUID) ([]*SpecialTest, error) {
	return m.special[examID], nil
}

func newExamService() *Service {
	return NewService(newMockExamRepo(), cache.NewCollection(cache.NewMemoryStore(), time.Minute))
}

func seedExam(t *testing.T, svc *Service) *Examination {
	t.Helper()
	e := &Examination{CaseID: uuid.New(), ExamDate: time.Now()}
	if err := svc.CreateExamination(context.Background(), e); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return e
}

func TestCreateExaminationDefaults(t *testing.T) {
	svc := newExamService()
	e := seedExam(t, svc)

	if e.Reliability != "reliable" {
		t.Errorf("reliability = %q, want reliable", e.Reliability)
	}
	if e.Status != "in_progress" {
		t.Errorf("status = %q, want in_progress", e.Status)
	}
}

func TestCreateExaminationValidation(t *testing.T) {
	svc := newExamService()

	bad := []*Examination{
		{CaseID: uuid.New()}, // missing exam date
		{CaseID: uuid.New(), ExamDate: time.Now(), Reliability: "shaky"},
		{CaseID: uuid.New(), ExamDate: time.Now(), Status: "paused"},
	}
	for _, e := range bad {
		if err := svc.CreateExamination(context.Background(), e); err == nil {
			t.Errorf("expected validation error for %+v", e)
		}
	}
}

func TestAddROMValidation(t *testing.T) {
	svc := newExamService()
	e := seedExam(t, svc)

	good := &ROMMeasurement{Joint: "lumbar spine", Movement: "flexion", ActiveROM: 45, PassiveROM: 55, NormalROM: 60, PainLevel: 6}
	if err := svc.AddROM(context.Background(), e.ID, good); err != nil {
		t.Fatalf("valid ROM rejected: %v", err)
	}

	bad := []*ROMMeasurement{
		{Movement: "flexion"},
		{Joint: "knee", Movement: "flexion", ActiveROM: 400},
		{Joint: "knee", Movement: "flexion", PainLevel: 11},
	}
	for _, m := range bad {
		if err := svc.AddROM(context.Background(), e.ID, m); err == nil {
			t.Errorf("expected validation error for %+v", m)
		}
	}
}

func TestAddStrengthTestValidation(t *testing.T) {
	svc := newExamService()
	e := seedExam(t, svc)

	if err := svc.AddStrengthTest(context.Background(), e.ID, &StrengthTest{MuscleGroup: "quadriceps", Side: "left", Grade: 4}); err != nil {
		t.Fatalf("valid strength test rejected: %v", err)
	}
	if err := svc.AddStrengthTest(context.Background(), e.ID, &StrengthTest{MuscleGroup: "quadriceps", Grade: 6}); err == nil {
		t.Error("expected error for grade above 5")
	}
	if err := svc.AddStrengthTest(context.Background(), e.ID, &StrengthTest{MuscleGroup: "quadriceps", Side: "upper"}); err == nil {
		t.Error("expected error for invalid side")
	}
}

func TestGetDetailAggregates(t *testing.T) {
	svc := newExamService()
	e := seedExam(t, svc)

	if err := svc.AddROM(context.Background(), e.ID, &ROMMeasurement{Joint: "cervical spine", Movement: "rotation", ActiveROM: 60, NormalROM: 80, PainLevel: 3}); err != nil {
		t.Fatalf("add rom: %v", err)
	}
	if err := svc.AddStrengthTest(context.Background(), e.ID, &StrengthTest{MuscleGroup: "deltoid", Side: "right", Grade: 5}); err != nil {
		t.Fatalf("add strength: %v", err)
	}
	if err := svc.AddSpecialTest(context.Background(), e.ID, &SpecialTest{TestName: "Spurling", Result: "positive"}); err != nil {
		t.Fatalf("add special: %v", err)
	}

	detail, err := svc.GetDetail(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if len(detail.ROM) != 1 || len(detail.StrengthTests) != 1 || len(detail.SpecialTests) != 1 {
		t.Errorf("detail counts = %d/%d/%d, want 1/1/1",
			len(detail.ROM), len(detail.StrengthTests), len(detail.SpecialTests))
	}
	if detail.Examination.ID != e.ID {
		t.Error("detail must carry the examination itself")
	}
}
