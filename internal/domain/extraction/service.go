package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medicase/medicase/internal/domain/audit"
	"github.com/medicase/medicase/internal/platform/analyzer"
	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
)

var validCategories = map[string]bool{
	"diagnosis": true, "medication": true, "procedure": true, "symptom": true,
}

var validDateTypes = map[string]bool{
	"injury_date": true, "first_treatment": true, "surgery": true,
	"mri": true, "followup": true,
}

var validReviewStatuses = map[string]bool{
	"pending": true, "approved": true, "rejected": true,
}

// Service is the edit controller for AI-extracted clinical data. Every
// mutation stamps the acting principal, preserves the first AI value, appends
// an audit entry and invalidates the case's review cache.
type Service struct {
	entities EntityRepository
	dates    DateRepository
	audit    Recorder
	cache    *cache.Collection
}

func NewService(entities EntityRepository, dates DateRepository, audit Recorder, cc *cache.Collection) *Service {
	return &Service{entities: entities, dates: dates, audit: audit, cache: cc}
}

// ListEntities returns all medical entities for a case, served through the
// collection cache.
func (s *Service) ListEntities(ctx context.Context, caseID uuid.UUID) ([]*MedicalEntity, error) {
	var items []*MedicalEntity
	err := s.cache.GetOrLoad(ctx, cache.EntitiesKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.entities.ListByCase(ctx, caseID)
	})
	return items, err
}

// ListDates returns all clinical dates for a case, served through the
// collection cache.
func (s *Service) ListDates(ctx context.Context, caseID uuid.UUID) ([]*ClinicalDate, error) {
	var items []*ClinicalDate
	err := s.cache.GetOrLoad(ctx, cache.DatesKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.dates.ListByCase(ctx, caseID)
	})
	return items, err
}

// EditEntity applies a physician correction. The current text is copied into
// original_text only if no original is recorded yet, so the first AI value
// survives any number of re-edits. The edit forces review_status=approved.
func (s *Service) EditEntity(ctx context.Context, id uuid.UUID, upd EntityUpdate) (*MedicalEntity, error) {
	if upd.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if upd.Category != "" && !validCategories[upd.Category] {
		return nil, fmt.Errorf("%w: invalid category: %s", ErrInvalidInput, upd.Category)
	}

	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *e

	if e.OriginalText == nil {
		orig := e.Text
		e.OriginalText = &orig
	}
	e.Text = upd.Text
	if upd.Category != "" {
		e.Category = upd.Category
	}
	if upd.ICD10Code != "" {
		e.ICD10Code = upd.ICD10Code
	}
	e.ReviewStatus = "approved"
	s.stampEntity(ctx, e)

	if err := s.entities.Update(ctx, e, upd.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, e.CaseID, audit.Change{
		Action: "update", ResourceType: "medical_entity", ResourceID: e.ID,
		FieldName: changedEntityFields(&old, e), OldValue: old, NewValue: e,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(e.CaseID.String())...)
	return e, nil
}

// EditDate applies a physician correction to a clinical date.
func (s *Service) EditDate(ctx context.Context, id uuid.UUID, upd DateUpdate) (*ClinicalDate, error) {
	if upd.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if upd.DateType != "" && !validDateTypes[upd.DateType] {
		return nil, fmt.Errorf("%w: invalid date_type: %s", ErrInvalidInput, upd.DateType)
	}

	d, err := s.dates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *d

	if d.OriginalDate == nil {
		orig := d.Date
		d.OriginalDate = &orig
	}
	d.Date = upd.Date
	if upd.DateType != "" {
		d.DateType = upd.DateType
	}
	if upd.Description != "" {
		d.Description = upd.Description
	}
	d.ReviewStatus = "approved"
	s.stampDate(ctx, d)

	if err := s.dates.Update(ctx, d, upd.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, d.CaseID, audit.Change{
		Action: "update", ResourceType: "clinical_date", ResourceID: d.ID,
		FieldName: changedDateFields(&old, d), OldValue: old, NewValue: d,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(d.CaseID.String())...)
	return d, nil
}

// RevertEntity restores the preserved AI text and puts the entity back into
// the pending queue. Entities that were never edited have nothing to revert
// to and return ErrNoOriginal. The optional reason lands in the audit entry.
func (s *Service) RevertEntity(ctx context.Context, id uuid.UUID, reason string) (*MedicalEntity, error) {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OriginalText == nil {
		return nil, ErrNoOriginal
	}
	old := *e

	e.Text = *e.OriginalText
	e.ReviewStatus = "pending"
	e.EditedBy = nil
	e.EditedAt = nil

	if err := s.entities.Update(ctx, e, e.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, e.CaseID, audit.Change{
		Action: "revert", ResourceType: "medical_entity", ResourceID: e.ID,
		FieldName: "text", Reason: reason, OldValue: old, NewValue: e,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(e.CaseID.String())...)
	return e, nil
}

// RevertDate restores the preserved AI date.
func (s *Service) RevertDate(ctx context.Context, id uuid.UUID, reason string) (*ClinicalDate, error) {
	d, err := s.dates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OriginalDate == nil {
		return nil, ErrNoOriginal
	}
	old := *d

	d.Date = *d.OriginalDate
	d.ReviewStatus = "pending"
	d.EditedBy = nil
	d.EditedAt = nil

	if err := s.dates.Update(ctx, d, d.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, d.CaseID, audit.Change{
		Action: "revert", ResourceType: "clinical_date", ResourceID: d.ID,
		FieldName: "date", Reason: reason, OldValue: old, NewValue: d,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(d.CaseID.String())...)
	return d, nil
}

// RejectEntity marks an entity as rejected. Rejection keeps the row; rejected
// items drop out of the report but remain in the audit history. The optional
// reason is recorded on the audit entry.
func (s *Service) RejectEntity(ctx context.Context, id uuid.UUID, reason string) (*MedicalEntity, error) {
	return s.setEntityStatus(ctx, id, "rejected", reason)
}

// ApproveEntity marks a single entity as approved without editing it.
func (s *Service) ApproveEntity(ctx context.Context, id uuid.UUID) (*MedicalEntity, error) {
	return s.setEntityStatus(ctx, id, "approved", "")
}

// RejectDate marks a clinical date as rejected.
func (s *Service) RejectDate(ctx context.Context, id uuid.UUID, reason string) (*ClinicalDate, error) {
	return s.setDateStatus(ctx, id, "rejected", reason)
}

// ApproveDate marks a single clinical date as approved.
func (s *Service) ApproveDate(ctx context.Context, id uuid.UUID) (*ClinicalDate, error) {
	return s.setDateStatus(ctx, id, "approved", "")
}

// DeleteEntity permanently removes an entity. This is the only hard-delete
// path; review screens reject instead. The deletion is audit-logged with the
// full prior value.
func (s *Service) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.entities.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, e.CaseID, audit.Change{
		Action: "delete", ResourceType: "medical_entity", ResourceID: e.ID, OldValue: e,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(e.CaseID.String())...)
	return nil
}

// DeleteDate permanently removes a clinical date.
func (s *Service) DeleteDate(ctx context.Context, id uuid.UUID) error {
	d, err := s.dates.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.dates.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, d.CaseID, audit.Change{
		Action: "delete", ResourceType: "clinical_date", ResourceID: d.ID, OldValue: d,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(d.CaseID.String())...)
	return nil
}

// IngestAnalysis persists the analyzer output for a freshly uploaded
// document. Everything lands with review_status=pending; dates the analyzer
// could not express as a calendar date are skipped with a warning.
func (s *Service) IngestAnalysis(ctx context.Context, caseID, documentID uuid.UUID, result *analyzer.Result) (int, int, error) {
	var entityCount, dateCount int

	for _, ext := range result.Entities {
		category := ext.Category
		if !validCategories[category] {
			category = "symptom"
		}
		e := &MedicalEntity{
			CaseID:       caseID,
			DocumentID:   documentID,
			Category:     category,
			Text:         ext.Text,
			ICD10Code:    ext.ICD10Code,
			Confidence:   ext.Confidence,
			PageNumber:   ext.PageNumber,
			SourceText:   ext.SourceText,
			ReviewStatus: "pending",
		}
		if err := s.entities.Create(ctx, e); err != nil {
			return entityCount, dateCount, fmt.Errorf("persist entity: %w", err)
		}
		entityCount++
	}

	for _, ext := range result.Dates {
		parsed, err := time.Parse("2006-01-02", ext.Date)
		if err != nil {
			log.Warn().Str("date", ext.Date).Str("case_id", caseID.String()).
				Msg("skipping unparseable clinical date")
			continue
		}
		dateType := ext.DateType
		if !validDateTypes[dateType] {
			dateType = "followup"
		}
		d := &ClinicalDate{
			CaseID:       caseID,
			DocumentID:   documentID,
			Date:         parsed,
			DateType:     dateType,
			Description:  ext.SourceText,
			Confidence:   ext.Confidence,
			PageNumber:   ext.PageNumber,
			SourceText:   ext.SourceText,
			ReviewStatus: "pending",
		}
		if err := s.dates.Create(ctx, d); err != nil {
			return entityCount, dateCount, fmt.Errorf("persist date: %w", err)
		}
		dateCount++
	}

	s.cache.Invalidate(ctx, cache.EntitiesKey(caseID.String()), cache.DatesKey(caseID.String()))
	return entityCount, dateCount, nil
}

func (s *Service) setEntityStatus(ctx context.Context, id uuid.UUID, status, reason string) (*MedicalEntity, error) {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *e
	e.ReviewStatus = status
	s.stampEntity(ctx, e)
	if err := s.entities.Update(ctx, e, e.Revision); err != nil {
		return nil, err
	}
	action := "approve"
	if status == "rejected" {
		action = "reject"
	}
	s.record(ctx, e.CaseID, audit.Change{
		Action: action, ResourceType: "medical_entity", ResourceID: e.ID,
		FieldName: "review_status", Reason: reason, OldValue: old, NewValue: e,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(e.CaseID.String())...)
	return e, nil
}

func (s *Service) setDateStatus(ctx context.Context, id uuid.UUID, status, reason string) (*ClinicalDate, error) {
	d, err := s.dates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *d
	d.ReviewStatus = status
	s.stampDate(ctx, d)
	if err := s.dates.Update(ctx, d, d.Revision); err != nil {
		return nil, err
	}
	action := "approve"
	if status == "rejected" {
		action = "reject"
	}
	s.record(ctx, d.CaseID, audit.Change{
		Action: action, ResourceType: "clinical_date", ResourceID: d.ID,
		FieldName: "review_status", Reason: reason, OldValue: old, NewValue: d,
	})
	s.cache.Invalidate(ctx, cache.ReviewKeys(d.CaseID.String())...)
	return d, nil
}

func (s *Service) stampEntity(ctx context.Context, e *MedicalEntity) {
	userID := auth.UserIDFromContext(ctx)
	now := time.Now()
	e.EditedBy = &userID
	e.EditedAt = &now
}

func (s *Service) stampDate(ctx context.Context, d *ClinicalDate) {
	userID := auth.UserIDFromContext(ctx)
	now := time.Now()
	d.EditedBy = &userID
	d.EditedAt = &now
}

// record appends the audit entry. Audit failures are logged, not propagated:
// the data change already committed and the review flow must not break on a
// trail write.
func (s *Service) record(ctx context.Context, caseID uuid.UUID, ch audit.Change) {
	if err := s.audit.Record(ctx, caseID, ch); err != nil {
		log.Error().Err(err).
			Str("case_id", caseID.String()).
			Str("action", ch.Action).
			Str("resource_type", ch.ResourceType).
			Msg("audit record failed")
	}
}

func changedEntityFields(old, e *MedicalEntity) string {
	var fields []string
	if old.Text != e.Text {
		fields = append(fields, "text")
	}
	if old.Category != e.Category {
		fields = append(fields, "category")
	}
	if old.ICD10Code != e.ICD10Code {
		fields = append(fields, "icd10_code")
	}
	return strings.Join(fields, ",")
}

func changedDateFields(old, d *ClinicalDate) string {
	var fields []string
	if !old.Date.Equal(d.Date) {
		fields = append(fields, "date")
	}
	if old.DateType != d.DateType {
		fields = append(fields, "date_type")
	}
	if old.Description != d.Description {
		fields = append(fields, "description")
	}
	return strings.Join(fields, ",")
}
