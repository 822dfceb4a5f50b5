package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/audit"
	"github.com/medicase/medicase/internal/platform/analyzer"
	"github.com/medicase/medicase/internal/platform/cache"
)

type mockEntityRepo struct {
	entities map[uuid.UUID]*MedicalEntity
}

func newMockEntityRepo() *mockEntityRepo {
	return &mockEntityRepo{entities: make(map[uuid.UUID]*MedicalEntity)}
}

func (m *mockEntityRepo) Create(_ context.Context, e *MedicalEntity) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalEntity, error) {
	e, ok := m.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntityRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*MedicalEntity, error) {
	var items []*MedicalEntity
	for _, e := range m.entities {
		if e.CaseID == caseID {
			cp := *e
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockEntityRepo) Update(_ context.Context, e *MedicalEntity, expectedRevision int) error {
	stored, ok := m.entities[e.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Revision != expectedRevision {
		return ErrConflict
	}
	e.Revision = expectedRevision + 1
	e.UpdatedAt = time.Now()
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.entities[id]; !ok {
		return ErrNotFound
	}
	delete(m.entities, id)
	return nil
}

type mockDateRepo struct {
	dates map[uuid.UUID]*ClinicalDate
}

func newMockDateRepo() *mockDateRepo {
	return &mockDateRepo{dates: make(map[uuid.UUID]*ClinicalDate)}
}

func (m *mockDateRepo) Create(_ context.Context, d *ClinicalDate) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.dates[d.ID] = &cp
	return nil
}

func (m *mockDateRepo) GetByID(_ context.Context, id uuid.UUID) (*ClinicalDate, error) {
	d, ok := m.dates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDateRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*ClinicalDate, error) {
	var items []*ClinicalDate
	for _, d := range m.dates {
		if d.CaseID == caseID {
			cp := *d
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockDateRepo) Update(_ context.Context, d *ClinicalDate, expectedRevision int) error {
	stored, ok := m.dates[d.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Revision != expectedRevision {
		return ErrConflict
	}
	d.Revision = expectedRevision + 1
	d.UpdatedAt = time.Now()
	cp := *d
	m.dates[d.ID] = &cp
	return nil
}

func (m *mockDateRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.dates[id]; !ok {
		return ErrNotFound
	}
	delete(m.dates, id)
	return nil
}

type recordedEntry struct {
	CaseID uuid.UUID
	audit.Change
}

type mockRecorder struct {
	entries []recordedEntry
}

func (m *mockRecorder) Record(_ context.Context, caseID uuid.UUID, ch audit.Change) error {
	m.entries = append(m.entries, recordedEntry{caseID, ch})
	return nil
}

type fixture struct {
	svc      *Service
	entities *mockEntityRepo
	dates    *mockDateRepo
	audit    *mockRecorder
}

func newFixture() *fixture {
	entities := newMockEntityRepo()
	dates := newMockDateRepo()
	audit := &mockRecorder{}
	cc := cache.NewCollection(cache.NewMemoryStore(), time.Minute)
	return &fixture{
		svc:      NewService(entities, dates, audit, cc),
		entities: entities,
		dates:    dates,
		audit:    audit,
	}
}

func (f *fixture) seedEntity(t *testing.T, caseID uuid.UUID, text string, confidence float64) *MedicalEntity {
	t.Helper()
	e := &MedicalEntity{
		CaseID: caseID, DocumentID: uuid.New(), Category: "diagnosis",
		Text: text, Confidence: confidence, ReviewStatus: "pending",
	}
	if err := f.entities.Create(context.Background(), e); err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	return e
}

func (f *fixture) seedDate(t *testing.T, caseID uuid.UUID, day string, confidence float64) *ClinicalDate {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("parse seed date: %v", err)
	}
	d := &ClinicalDate{
		CaseID: caseID, DocumentID: uuid.New(), Date: parsed,
		DateType: "surgery", Confidence: confidence, ReviewStatus: "pending",
	}
	if err := f.dates.Create(context.Background(), d); err != nil {
		t.Fatalf("seed date: %v", err)
	}
	return d
}

func TestEditEntityPreservesOriginal(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "lumbar strain", 0.82)

	got, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "lumbar sprain", Revision: e.Revision,
	})
	if err != nil {
		t.Fatalf("first edit failed: %v", err)
	}
	if got.OriginalText == nil || *got.OriginalText != "lumbar strain" {
		t.Fatal("first edit must preserve the AI text as original")
	}
	if got.ReviewStatus != "approved" {
		t.Errorf("review_status = %q, want approved", got.ReviewStatus)
	}
	if got.EditedBy == nil || got.EditedAt == nil {
		t.Error("edit must stamp edited_by and edited_at")
	}

	got, err = f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "lumbosacral sprain", Revision: got.Revision,
	})
	if err != nil {
		t.Fatalf("second edit failed: %v", err)
	}
	if *got.OriginalText != "lumbar strain" {
		t.Errorf("original_text = %q after re-edit, want the first AI value", *got.OriginalText)
	}
}

func TestRevertEntity(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "cervical strain", 0.9)

	edited, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "cervical sprain", Revision: e.Revision,
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	reverted, err := f.svc.RevertEntity(context.Background(), edited.ID, "wrong correction")
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if reverted.Text != "cervical strain" {
		t.Errorf("text = %q, want the original AI value", reverted.Text)
	}
	if reverted.ReviewStatus != "pending" {
		t.Errorf("review_status = %q, want pending", reverted.ReviewStatus)
	}
	if reverted.EditedBy != nil {
		t.Error("revert must clear edited_by")
	}
}

func TestRevertWithoutOriginal(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "never edited", 0.8)

	if _, err := f.svc.RevertEntity(context.Background(), e.ID, ""); !errors.Is(err, ErrNoOriginal) {
		t.Errorf("revert of unedited entity = %v, want ErrNoOriginal", err)
	}
}

func TestEditEntityStaleRevision(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "knee effusion", 0.75)

	if _, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "first edit", Revision: e.Revision,
	}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	// Second writer still holds the pre-edit revision.
	_, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "conflicting edit", Revision: e.Revision,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale edit = %v, want ErrConflict", err)
	}

	stored, err := f.entities.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Text != "first edit" {
		t.Errorf("text = %q, conflicting edit must not change the row", stored.Text)
	}
}

func TestEditDatePreservesOriginal(t *testing.T) {
	f := newFixture()
	d := f.seedDate(t, uuid.New(), "2025-03-14", 0.88)

	newDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.EditDate(context.Background(), d.ID, DateUpdate{
		Date: newDate, Revision: d.Revision,
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if got.OriginalDate == nil || !got.OriginalDate.Equal(d.Date) {
		t.Fatal("first edit must preserve the AI date as original")
	}

	reverted, err := f.svc.RevertDate(context.Background(), got.ID, "")
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if !reverted.Date.Equal(d.Date) {
		t.Errorf("date = %v, want the original %v", reverted.Date, d.Date)
	}
}

func TestDeleteEntityAudited(t *testing.T) {
	f := newFixture()
	caseID := uuid.New()
	e := f.seedEntity(t, caseID, "to remove", 0.5)

	if err := f.svc.DeleteEntity(context.Background(), e.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.entities.GetByID(context.Background(), e.ID); !errors.Is(err, ErrNotFound) {
		t.Error("entity should be gone after delete")
	}

	if len(f.audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.Action != "delete" || entry.CaseID != caseID {
		t.Errorf("audit entry = %+v, want delete on case %s", entry, caseID)
	}
}

func TestRejectEntityRecordsReason(t *testing.T) {
	f := newFixture()
	caseID := uuid.New()
	e := f.seedEntity(t, caseID, "rule-out fracture", 0.55)

	got, err := f.svc.RejectEntity(context.Background(), e.ID, "not supported by imaging")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if got.ReviewStatus != "rejected" {
		t.Errorf("review_status = %q, want rejected", got.ReviewStatus)
	}

	if len(f.audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.Action != "reject" || entry.Reason != "not supported by imaging" {
		t.Errorf("audit entry = %+v, want reject with the given reason", entry)
	}
	if entry.FieldName != "review_status" {
		t.Errorf("field_name = %q, want review_status", entry.FieldName)
	}
}

func TestRevertEntityRecordsReason(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "shoulder impingement", 0.8)

	if _, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "rotator cuff tear", Revision: e.Revision,
	}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if _, err := f.svc.RevertEntity(context.Background(), e.ID, "edit applied to wrong patient"); err != nil {
		t.Fatalf("revert failed: %v", err)
	}

	last := f.audit.entries[len(f.audit.entries)-1]
	if last.Action != "revert" || last.Reason != "edit applied to wrong patient" {
		t.Errorf("audit entry = %+v, want revert with the given reason", last)
	}
}

func TestEditEntityRecordsChangedFields(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "lumbar strain", 0.82)

	if _, err := f.svc.EditEntity(context.Background(), e.ID, EntityUpdate{
		Text: "lumbar sprain", ICD10Code: "S33.5", Revision: e.Revision,
	}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	entry := f.audit.entries[0]
	if entry.FieldName != "text,icd10_code" {
		t.Errorf("field_name = %q, want text,icd10_code", entry.FieldName)
	}
}

func TestEditEntityValidation(t *testing.T) {
	f := newFixture()
	e := f.seedEntity(t, uuid.New(), "lumbar strain", 0.82)

	bad := []EntityUpdate{
		{Revision: e.Revision},
		{Text: "x", Category: "prognosis", Revision: e.Revision},
	}
	for _, upd := range bad {
		if _, err := f.svc.EditEntity(context.Background(), e.ID, upd); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("EditEntity(%+v) = %v, want ErrInvalidInput", upd, err)
		}
	}
}

func TestIngestAnalysis(t *testing.T) {
	f := newFixture()
	caseID, docID := uuid.New(), uuid.New()

	result := &analyzer.Result{
		Entities: []analyzer.ExtractedEntity{
			{Text: "L4-L5 disc herniation", Category: "diagnosis", ICD10Code: "M51.26", Confidence: 0.93},
			{Text: "ibuprofen 600mg", Category: "medication", Confidence: 0.81},
		},
		Dates: []analyzer.ExtractedDate{
			{Date: "2025-01-10", DateType: "injury_date", Confidence: 0.9},
			{Date: "not a date", DateType: "surgery", Confidence: 0.4},
		},
	}

	nEntities, nDates, err := f.svc.IngestAnalysis(context.Background(), caseID, docID, result)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if nEntities != 2 {
		t.Errorf("entities persisted = %d, want 2", nEntities)
	}
	if nDates != 1 {
		t.Errorf("dates persisted = %d, want 1 (unparseable date skipped)", nDates)
	}

	entities, err := f.svc.ListEntities(context.Background(), caseID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, e := range entities {
		if e.ReviewStatus != "pending" {
			t.Errorf("ingested entity status = %q, want pending", e.ReviewStatus)
		}
	}
}
