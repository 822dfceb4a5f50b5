package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medicase/medicase/internal/platform/analyzer"
	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/blobstore"
	"github.com/medicase/medicase/internal/platform/cache"
	"github.com/medicase/medicase/internal/domain/extraction"
)

// Upload carries one incoming file.
type Upload struct {
	CaseID      uuid.UUID
	FileName    string
	ContentType string
	Content     io.Reader
	TypeHint    string
}

type Service struct {
	repo       Repository
	blobs      blobstore.BlobStore
	analyzer   analyzer.Analyzer
	extraction *extraction.Service
	cache      *cache.Collection
}

func NewService(repo Repository, blobs blobstore.BlobStore, az analyzer.Analyzer, ext *extraction.Service, cc *cache.Collection) *Service {
	return &Service{repo: repo, blobs: blobs, analyzer: az, extraction: ext, cache: cc}
}

// UploadAndAnalyze is the single-step intake flow: the file is stored, a
// document row created, the analyzer invoked and its findings persisted as
// pending extraction items. Analyzer failure marks the document failed but
// keeps both the blob and the row so intake can be retried or inspected.
func (s *Service) UploadAndAnalyze(ctx context.Context, up Upload) (*UploadSummary, error) {
	if up.FileName == "" {
		return nil, fmt.Errorf("file name is required")
	}

	data, err := io.ReadAll(up.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	userID := auth.UserIDFromContext(ctx)
	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    up.FileName,
		ContentType: up.ContentType,
		CaseID:      up.CaseID.String(),
		CreatedBy:   userID,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	doc := &Document{
		CaseID:      up.CaseID,
		BlobID:      meta.ID,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		Size:        meta.Size,
		Status:      "analyzing",
		UploadedBy:  userID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.cache.Invalidate(ctx, cache.DocumentsKey(up.CaseID.String()))

	result, err := s.analyzer.Analyze(ctx, analyzer.Request{
		FileName:    up.FileName,
		ContentType: up.ContentType,
		Data:        data,
		TypeHint:    up.TypeHint,
	})
	if err != nil {
		log.Error().Err(err).
			Str("document_id", doc.ID.String()).
			Str("case_id", up.CaseID.String()).
			Msg("document analysis failed")
		doc.Status = "failed"
		if updErr := s.repo.Update(ctx, doc); updErr != nil {
			return nil, fmt.Errorf("mark document failed: %w", updErr)
		}
		s.cache.Invalidate(ctx, cache.DocumentsKey(up.CaseID.String()))
		return &UploadSummary{Document: doc, AnalysisError: err.Error()}, nil
	}

	doc.Status = "analyzed"
	doc.DocumentType = result.DocumentType
	doc.OCRConfidence = result.OCRConfidence
	doc.QualityScore = result.QualityScore
	doc.PageCount = result.PageCount
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	nEntities, nDates, err := s.extraction.IngestAnalysis(ctx, up.CaseID, doc.ID, result)
	if err != nil {
		return nil, fmt.Errorf("ingest analysis: %w", err)
	}
	s.cache.Invalidate(ctx, cache.DocumentsKey(up.CaseID.String()))

	return &UploadSummary{
		Document:          doc,
		EntitiesExtracted: nEntities,
		DatesExtracted:    nDates,
	}, nil
}

// GetDocument returns one document record.
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByCase returns a case's documents through the collection cache.
func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error) {
	var items []*Document
	err := s.cache.GetOrLoad(ctx, cache.DocumentsKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByCase(ctx, caseID)
	})
	return items, err
}

// Download streams the stored file.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, doc.BlobID)
	if err != nil {
		return nil, nil, err
	}
	return rc, doc, nil
}

// Delete removes the document row and its blob.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.BlobID); err != nil {
		log.Warn().Err(err).Str("blob_id", doc.BlobID).Msg("orphaned blob after document delete")
	}
	s.cache.Invalidate(ctx, cache.DocumentsKey(doc.CaseID.String()))
	return nil
}
