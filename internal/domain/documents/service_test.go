package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/audit"
	"github.com/medicase/medicase/internal/domain/extraction"
	"github.com/medicase/medicase/internal/platform/analyzer"
	"github.com/medicase/medicase/internal/platform/blobstore"
	"github.com/medicase/medicase/internal/platform/cache"
)

type mockDocRepo struct {
	docs map[uuid.UUID]*Document
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{docs: make(map[uuid.UUID]*Document)}
}

func (m *mockDocRepo) Create(_ context.Context, d *Document) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *mockDocRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDocRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*Document, error) {
	var items []*Document
	for _, d := range m.docs {
		if d.CaseID == caseID {
			cp := *d
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockDocRepo) Update(_ context.Context, d *Document) error {
	if _, ok := m.docs[d.ID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = time.Now()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *mockDocRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type mockAnalyzer struct {
	result *analyzer.Result
	err    error
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ analyzer.Request) (*analyzer.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockEntityRepo struct {
	entities []*extraction.MedicalEntity
}

func (m *mockEntityRepo) Create(_ context.Context, e *extraction.MedicalEntity) error {
	e.ID = uuid.New()
	m.entities = append(m.entities, e)
	return nil
}
func (m *mockEntityRepo) GetByID(_ context.Context, _ uuid.UUID) (*extraction.MedicalEntity, error) {
	return nil, extraction.ErrNotFound
}
func (m *mockEntityRepo) ListByCase(_ context.Context, _ uuid.UUID) ([]*extraction.MedicalEntity, error) {
	return m.entities, nil
}
func (m *mockEntityRepo) Update(_ context.Context, _ *extraction.MedicalEntity, _ int) error {
	return extraction.ErrNotFound
}
func (m *mockEntityRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return extraction.ErrNotFound
}

type mockDateRepo struct {
	dates []*extraction.ClinicalDate
}

func (m *mockDateRepo) Create(_ context.Context, d *extraction.ClinicalDate) error {
	d.ID = uuid.New()
	m.dates = append(m.dates, d)
	return nil
}
func (m *mockDateRepo) GetByID(_ context.Context, _ uuid.UUID) (*extraction.ClinicalDate, error) {
	return nil, extraction.ErrNotFound
}
func (m *mockDateRepo) ListByCase(_ context.Context, _ uuid.UUID) ([]*extraction.ClinicalDate, error) {
	return m.dates, nil
}
func (m *mockDateRepo) Update(_ context.Context, _ *extraction.ClinicalDate, _ int) error {
	return extraction.ErrNotFound
}
func (m *mockDateRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return extraction.ErrNotFound
}

type noopRecorder struct{}

func (noopRecorder) Record(_ context.Context, _ uuid.UUID, _ audit.Change) error {
	return nil
}

func newDocService(az analyzer.Analyzer) (*Service, *mockDocRepo, *mockEntityRepo, *mockDateRepo) {
	repo := newMockDocRepo()
	entities := &mockEntityRepo{}
	dates := &mockDateRepo{}
	cc := cache.NewCollection(cache.NewMemoryStore(), time.Minute)
	ext := extraction.NewService(entities, dates, noopRecorder{}, cc)
	svc := NewService(repo, blobstore.NewInMemoryBlobStore(), az, ext, cc)
	return svc, repo, entities, dates
}

func TestUploadAndAnalyze(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{
		DocumentType:  "progress_note",
		OCRConfidence: 0.97,
		QualityScore:  0.91,
		PageCount:     3,
		Entities: []analyzer.ExtractedEntity{
			{Text: "lumbar disc herniation", Category: "diagnosis", Confidence: 0.9},
		},
		Dates: []analyzer.ExtractedDate{
			{Date: "2025-04-02", DateType: "mri", Confidence: 0.85},
		},
	}}
	svc, _, entities, dates := newDocService(az)
	caseID := uuid.New()

	summary, err := svc.UploadAndAnalyze(context.Background(), Upload{
		CaseID:      caseID,
		FileName:    "progress-note.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if summary.Document.Status != "analyzed" {
		t.Errorf("status = %q, want analyzed", summary.Document.Status)
	}
	if summary.Document.PageCount != 3 || summary.Document.DocumentType != "progress_note" {
		t.Errorf("analysis metadata not persisted: %+v", summary.Document)
	}
	if summary.EntitiesExtracted != 1 || summary.DatesExtracted != 1 {
		t.Errorf("extracted counts = %d/%d, want 1/1", summary.EntitiesExtracted, summary.DatesExtracted)
	}
	if len(entities.entities) != 1 || entities.entities[0].ReviewStatus != "pending" {
		t.Error("extracted entity must be persisted with pending status")
	}
	if len(dates.dates) != 1 || dates.dates[0].ReviewStatus != "pending" {
		t.Error("extracted date must be persisted with pending status")
	}
}

func TestUploadAnalyzerFailureKeepsDocument(t *testing.T) {
	az := &mockAnalyzer{err: errors.New("service unavailable")}
	svc, repo, _, _ := newDocService(az)
	caseID := uuid.New()

	summary, err := svc.UploadAndAnalyze(context.Background(), Upload{
		CaseID:      caseID,
		FileName:    "scan.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("upload should not fail outright: %v", err)
	}

	if summary.Document.Status != "failed" {
		t.Errorf("status = %q, want failed", summary.Document.Status)
	}
	if summary.AnalysisError == "" {
		t.Error("analysis error must be surfaced in the summary")
	}

	stored, err := repo.GetByID(context.Background(), summary.Document.ID)
	if err != nil {
		t.Fatalf("document row must survive analyzer failure: %v", err)
	}
	if stored.Status != "failed" {
		t.Errorf("stored status = %q, want failed", stored.Status)
	}
}

func TestUploadRejectsBadContentType(t *testing.T) {
	svc, _, _, _ := newDocService(&mockAnalyzer{result: &analyzer.Result{}})

	_, err := svc.UploadAndAnalyze(context.Background(), Upload{
		CaseID:      uuid.New(),
		FileName:    "malware.exe",
		ContentType: "application/octet-stream",
		Content:     strings.NewReader("MZ"),
	})
	if !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Errorf("err = %v, want ErrInvalidContentType", err)
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	az := &mockAnalyzer{result: &analyzer.Result{DocumentType: "other"}}
	svc, repo, _, _ := newDocService(az)
	caseID := uuid.New()

	summary, err := svc.UploadAndAnalyze(context.Background(), Upload{
		CaseID:      caseID,
		FileName:    "note.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := svc.Delete(context.Background(), summary.Document.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), summary.Document.ID); !errors.Is(err, ErrNotFound) {
		t.Error("document row should be gone")
	}
}
