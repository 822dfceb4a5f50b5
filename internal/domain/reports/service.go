package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/extraction"
	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
)

var validReportTypes = map[string]bool{
	"pre_exam": true, "ime": true, "addendum": true, "supplemental": true,
}

// Legal lifecycle moves. Finalized reports can only be sent; sent is
// terminal.
var statusTransitions = map[string][]string{
	"draft":     {"review"},
	"review":    {"draft", "finalized"},
	"finalized": {"sent"},
	"sent":      {},
}

// CaseData is the slice of extraction the report assembler reads. Only
// approved items make it into generated sections.
type CaseData interface {
	ListEntities(ctx context.Context, caseID uuid.UUID) ([]*extraction.MedicalEntity, error)
	ListDates(ctx context.Context, caseID uuid.UUID) ([]*extraction.ClinicalDate, error)
}

type Service struct {
	repo     Repository
	caseData CaseData
	cache    *cache.Collection
}

func NewService(repo Repository, caseData CaseData, cc *cache.Collection) *Service {
	return &Service{repo: repo, caseData: caseData, cache: cc}
}

func (s *Service) CreateReport(ctx context.Context, r *Report) error {
	if !validReportTypes[r.Type] {
		return fmt.Errorf("invalid report type: %s", r.Type)
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	r.Status = "draft"
	r.CreatedBy = auth.UserIDFromContext(ctx)
	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ReportsKey(r.CaseID.String()))
	return nil
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.repo.ListSections(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Report: r, Sections: sections}, nil
}

func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Report, error) {
	var items []*Report
	err := s.cache.GetOrLoad(ctx, cache.ReportsKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByCase(ctx, caseID)
	})
	return items, err
}

// ChangeStatus moves the report along its lifecycle.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, next := range statusTransitions[r.Status] {
		if next == newStatus {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, newStatus)
	}
	r.Status = newStatus
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.ReportsKey(r.CaseID.String()))
	return r, nil
}

// Finalize marks a reviewed report as final, stamping the reviewing
// physician and the finalization date.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != "review" {
		return nil, fmt.Errorf("%w: only reports in review can be finalized", ErrInvalidTransition)
	}
	now := time.Now()
	reviewer := auth.UserIDFromContext(ctx)
	r.Status = "finalized"
	r.FinalizedDate = &now
	r.ReviewerID = &reviewer
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.ReportsKey(r.CaseID.String()))
	return r, nil
}

// AddSection appends a manual section after the existing ones.
func (s *Service) AddSection(ctx context.Context, reportID uuid.UUID, sec *Section) error {
	r, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if r.Status == "finalized" || r.Status == "sent" {
		return fmt.Errorf("%w: cannot edit a %s report", ErrInvalidTransition, r.Status)
	}
	if sec.Title == "" {
		return fmt.Errorf("section title is required")
	}
	existing, err := s.repo.ListSections(ctx, reportID)
	if err != nil {
		return err
	}
	sec.ReportID = reportID
	sec.Position = len(existing) + 1
	sec.AutoGenerated = false
	return s.repo.CreateSection(ctx, sec)
}

// GenerateSections rebuilds the auto-generated sections from the case's
// approved clinical data. Manual sections are untouched; previous generated
// sections are replaced.
func (s *Service) GenerateSections(ctx context.Context, reportID uuid.UUID) ([]*Section, error) {
	r, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.Status == "finalized" || r.Status == "sent" {
		return nil, fmt.Errorf("%w: cannot regenerate a %s report", ErrInvalidTransition, r.Status)
	}

	entities, err := s.caseData.ListEntities(ctx, r.CaseID)
	if err != nil {
		return nil, err
	}
	dates, err := s.caseData.ListDates(ctx, r.CaseID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSections(ctx, reportID, true); err != nil {
		return nil, err
	}

	generated := []*Section{
		{Title: "Diagnoses", Content: renderEntities(entities, "diagnosis")},
		{Title: "Medications", Content: renderEntities(entities, "medication")},
		{Title: "Procedures", Content: renderEntities(entities, "procedure")},
		{Title: "Clinical Timeline", Content: renderDates(dates)},
	}

	manual, err := s.repo.ListSections(ctx, reportID)
	if err != nil {
		return nil, err
	}
	pos := len(manual)
	var out []*Section
	for _, sec := range generated {
		if sec.Content == "" {
			continue
		}
		pos++
		sec.ReportID = reportID
		sec.Position = pos
		sec.AutoGenerated = true
		if err := s.repo.CreateSection(ctx, sec); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

func renderEntities(entities []*extraction.MedicalEntity, category string) string {
	var lines []string
	for _, e := range entities {
		if e.Category != category || e.ReviewStatus != "approved" {
			continue
		}
		line := "- " + e.Text
		if e.ICD10Code != "" {
			line += " (" + e.ICD10Code + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderDates(dates []*extraction.ClinicalDate) string {
	var lines []string
	for _, d := range dates {
		if d.ReviewStatus != "approved" {
			continue
		}
		line := "- " + d.Date.Format("2006-01-02") + ": " + d.DateType
		if d.Description != "" {
			line += " (" + d.Description + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
