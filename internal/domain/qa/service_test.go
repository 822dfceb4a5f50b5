package qa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/platform/cache"
)

type mockQARepo struct {
	statuses map[uuid.UUID]*QAStatus
	stages   map[uuid.UUID][]*StageRecord
	issues   map[uuid.UUID]*Issue
}

func newMockQARepo() *mockQARepo {
	return &mockQARepo{
		statuses: make(map[uuid.UUID]*QAStatus),
		stages:   make(map[uuid.UUID][]*StageRecord),
		issues:   make(map[uuid.UUID]*Issue),
	}
}

func (m *mockQARepo) CreateStatus(_ context.Context, s *QAStatus) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.statuses[s.CaseID] = s
	return nil
}

func (m *mockQARepo) GetStatusByCase(_ context.Context, caseID uuid.UUID) (*QAStatus, error) {
	s, ok := m.statuses[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockQARepo) UpdateStatus(_ context.Context, s *QAStatus) error {
	if _, ok := m.statuses[s.CaseID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now()
	cp := *s
	m.statuses[s.CaseID] = &cp
	return nil
}

func (m *mockQARepo) CreateStageRecords(_ context.Context, records []*StageRecord) error {
	for _, r := range records {
		r.ID = uuid.New()
		r.CreatedAt = time.Now()
		r.UpdatedAt = r.CreatedAt
		m.stages[r.CaseID] = append(m.stages[r.CaseID], r)
	}
	return nil
}

func (m *mockQARepo) ListStages(_ context.Context, caseID uuid.UUID) ([]*StageRecord, error) {
	records := m.stages[caseID]
	out := make([]*StageRecord, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (m *mockQARepo) UpdateStage(_ context.Context, rec *StageRecord) error {
	for i, r := range m.stages[rec.CaseID] {
		if r.ID == rec.ID {
			rec.UpdatedAt = time.Now()
			cp := *rec
			m.stages[rec.CaseID][i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockQARepo) CreateIssue(_ context.Context, i *Issue) error {
	i.ID = uuid.New()
	i.CreatedAt = time.Now()
	cp := *i
	m.issues[i.ID] = &cp
	return nil
}

func (m *mockQARepo) GetIssue(_ context.Context, id uuid.UUID) (*Issue, error) {
	i, ok := m.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *mockQARepo) ListIssuesByCase(_ context.Context, caseID uuid.UUID) ([]*Issue, error) {
	var items []*Issue
	for _, i := range m.issues {
		if i.CaseID == caseID {
			cp := *i
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockQARepo) UpdateIssue(_ context.Context, i *Issue) error {
	if _, ok := m.issues[i.ID]; !ok {
		return ErrNotFound
	}
	cp := *i
	m.issues[i.ID] = &cp
	return nil
}

func (m *mockQARepo) CountUnresolvedCritical(_ context.Context, caseID uuid.UUID) (int, error) {
	var n int
	for _, i := range m.issues {
		if i.CaseID == caseID && i.Severity == "critical" && !i.Resolved {
			n++
		}
	}
	return n, nil
}

func newQAService() (*Service, *mockQARepo) {
	repo := newMockQARepo()
	cc := cache.NewCollection(cache.NewMemoryStore(), time.Minute)
	return NewService(repo, cc), repo
}

func TestEnsureStatusInitializesWorkflow(t *testing.T) {
	svc, repo := newQAService()
	caseID := uuid.New()

	status, err := svc.EnsureStatus(context.Background(), caseID)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if status.CurrentStage != Stages[0] {
		t.Errorf("initial stage = %q, want %q", status.CurrentStage, Stages[0])
	}

	stages, _ := repo.ListStages(context.Background(), caseID)
	if len(stages) != len(Stages) {
		t.Fatalf("stage records = %d, want %d", len(stages), len(Stages))
	}
	if stages[0].Status != "in_progress" {
		t.Errorf("first stage status = %q, want in_progress", stages[0].Status)
	}
	for _, st := range stages[1:] {
		if st.Status != "pending" {
			t.Errorf("stage %s status = %q, want pending", st.Stage, st.Status)
		}
	}
}

func TestAdvanceWalksStagesForward(t *testing.T) {
	svc, _ := newQAService()
	caseID := uuid.New()

	for i := 1; i < len(Stages); i++ {
		status, err := svc.Advance(context.Background(), caseID)
		if err != nil {
			t.Fatalf("advance %d failed: %v", i, err)
		}
		if status.CurrentStage != Stages[i] {
			t.Fatalf("stage after advance %d = %q, want %q", i, status.CurrentStage, Stages[i])
		}
	}

	// Advancing from the last stage completes the workflow.
	if _, err := svc.Advance(context.Background(), caseID); err != nil {
		t.Fatalf("final advance failed: %v", err)
	}
	ov, err := svc.Overview(context.Background(), caseID)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if ov.CompletionPercent != 100 {
		t.Errorf("completion = %.0f%%, want 100%%", ov.CompletionPercent)
	}

	if _, err := svc.Advance(context.Background(), caseID); !errors.Is(err, ErrTerminal) {
		t.Errorf("advance past completion = %v, want ErrTerminal", err)
	}
}

func TestAdvanceBlockedByCriticalIssue(t *testing.T) {
	svc, repo := newQAService()
	caseID := uuid.New()

	if _, err := svc.EnsureStatus(context.Background(), caseID); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	issue := &Issue{
		Category: "accuracy", Severity: "critical",
		Description: "diagnosis contradicts imaging report",
	}
	if err := svc.AddIssue(context.Background(), caseID, issue); err != nil {
		t.Fatalf("add issue failed: %v", err)
	}

	_, err := svc.Advance(context.Background(), caseID)
	if !errors.Is(err, ErrStageBlocked) {
		t.Fatalf("advance = %v, want ErrStageBlocked", err)
	}

	// Blocked advance must not mutate workflow state.
	status, _ := repo.GetStatusByCase(context.Background(), caseID)
	if status.CurrentStage != Stages[0] {
		t.Errorf("stage = %q after blocked advance, want %q", status.CurrentStage, Stages[0])
	}
	stages, _ := repo.ListStages(context.Background(), caseID)
	for _, st := range stages {
		if st.Status == "completed" {
			t.Errorf("stage %s completed despite blocked advance", st.Stage)
		}
	}

	// Resolving the issue unblocks the gate.
	if _, err := svc.ResolveIssue(context.Background(), issue.ID); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := svc.Advance(context.Background(), caseID); err != nil {
		t.Errorf("advance after resolve = %v, want success", err)
	}
}

func TestAdvanceBlockedByNonCurrentStageIssue(t *testing.T) {
	svc, _ := newQAService()
	caseID := uuid.New()

	if _, err := svc.Advance(context.Background(), caseID); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	// Issue filed against the earlier, already-completed stage still gates
	// the whole case.
	issue := &Issue{
		Stage: Stages[0], Category: "completeness", Severity: "critical",
		Description: "missing operative report",
	}
	if err := svc.AddIssue(context.Background(), caseID, issue); err != nil {
		t.Fatalf("add issue failed: %v", err)
	}

	if _, err := svc.Advance(context.Background(), caseID); !errors.Is(err, ErrStageBlocked) {
		t.Errorf("advance = %v, want ErrStageBlocked for case-wide critical issue", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newQAService()
	caseID := uuid.New()

	if _, err := svc.Reject(context.Background(), caseID, ""); err == nil {
		t.Error("expected error for empty rejection reason")
	}
}

func TestRejectFromAnyStageIsTerminal(t *testing.T) {
	svc, repo := newQAService()
	caseID := uuid.New()

	// Move to a middle stage first.
	if _, err := svc.Advance(context.Background(), caseID); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	status, err := svc.Reject(context.Background(), caseID, "insufficient documentation")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if status.CurrentStage != StageRejected {
		t.Errorf("stage = %q, want %q", status.CurrentStage, StageRejected)
	}
	if status.RejectionReason != "insufficient documentation" {
		t.Errorf("reason = %q not recorded", status.RejectionReason)
	}

	stages, _ := repo.ListStages(context.Background(), caseID)
	var failed bool
	for _, st := range stages {
		if st.Stage == Stages[1] && st.Status == "failed" {
			failed = true
		}
	}
	if !failed {
		t.Error("rejected stage record should be marked failed")
	}

	if _, err := svc.Advance(context.Background(), caseID); !errors.Is(err, ErrTerminal) {
		t.Errorf("advance after reject = %v, want ErrTerminal", err)
	}
	if _, err := svc.Reject(context.Background(), caseID, "again"); !errors.Is(err, ErrTerminal) {
		t.Errorf("double reject = %v, want ErrTerminal", err)
	}
}

func TestOverviewScores(t *testing.T) {
	svc, _ := newQAService()
	caseID := uuid.New()

	if _, err := svc.EnsureStatus(context.Background(), caseID); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	issues := []*Issue{
		{Category: "data_quality", Severity: "critical", Description: "a"},
		{Category: "accuracy", Severity: "medium", Description: "b"},
	}
	for _, i := range issues {
		if err := svc.AddIssue(context.Background(), caseID, i); err != nil {
			t.Fatalf("add issue failed: %v", err)
		}
	}

	ov, err := svc.Overview(context.Background(), caseID)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if ov.QualityScore != 75 {
		t.Errorf("quality score = %.0f, want 75 (100 - 20 - 5)", ov.QualityScore)
	}
	if ov.UnresolvedCritical != 1 {
		t.Errorf("unresolved critical = %d, want 1", ov.UnresolvedCritical)
	}
	if len(ov.Issues) != 2 {
		t.Errorf("flattened issues = %d, want 2", len(ov.Issues))
	}
}

func TestAddIssueValidation(t *testing.T) {
	svc, _ := newQAService()
	caseID := uuid.New()

	bad := []*Issue{
		{Category: "style", Severity: "low", Description: "x"},
		{Category: "accuracy", Severity: "fatal", Description: "x"},
		{Category: "accuracy", Severity: "low"},
	}
	for _, i := range bad {
		if err := svc.AddIssue(context.Background(), caseID, i); err == nil {
			t.Errorf("expected validation error for %+v", i)
		}
	}
}
