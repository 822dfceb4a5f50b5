package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/audit"
	"github.com/medicase/medicase/internal/platform/cache"
)

// Confidence thresholds for the review filter and the low-confidence queue.
const (
	lowConfidenceBelow = 0.7
	highConfidenceFrom = 0.9
)

// FilterSpec narrows the review working set. All filters apply before the
// view partitioning, so the three derived views always describe the same
// subset.
type FilterSpec struct {
	Confidence string `query:"confidence"`  // all, low, high
	Status     string `query:"status"`      // pending, approved, rejected
	EntityType string `query:"entity_type"` // diagnosis, medication, procedure, symptom, date
	Search     string `query:"search"`
}

// ReviewItem is the uniform review-surface projection of an entity or date.
type ReviewItem struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"` // entity, date
	Label        string    `json:"label"`
	Category     string    `json:"category,omitempty"`
	ICD10Code    string    `json:"icd10_code,omitempty"`
	Confidence   float64   `json:"confidence"`
	ReviewStatus string    `json:"review_status"`
	PageNumber   int       `json:"page_number,omitempty"`
	Revision     int       `json:"revision"`
}

// ReviewView partitions the filtered subset into three disjoint queues:
// pending items the AI is confident about, pending items needing a close
// look, and everything already reviewed.
type ReviewView struct {
	PendingReview []ReviewItem `json:"pending_review"`
	LowConfidence []ReviewItem `json:"low_confidence"`
	Reviewed      []ReviewItem `json:"reviewed_items"`
	Total         int          `json:"total"`
}

// BulkRequest selects entities and dates for a single batched status change.
// The optional reason is stamped on every resulting audit entry.
type BulkRequest struct {
	Action    string      `json:"action"` // approve, reject
	Reason    string      `json:"reason,omitempty"`
	EntityIDs []uuid.UUID `json:"entity_ids"`
	DateIDs   []uuid.UUID `json:"date_ids"`
}

// BulkItemResult reports the outcome for one selected item.
type BulkItemResult struct {
	ID    uuid.UUID `json:"id"`
	Kind  string    `json:"kind"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
}

// BulkResult is the per-item outcome list for one batch. A batch can partially
// succeed; callers inspect Results rather than a single error.
type BulkResult struct {
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// BuildReview loads the case's entities and dates, applies the filter once
// and partitions the result. Low-confidence pending items go to the
// LowConfidence queue, remaining pending items to PendingReview, and
// approved/rejected items to Reviewed.
func (s *Service) BuildReview(ctx context.Context, caseID uuid.UUID, filter FilterSpec) (*ReviewView, error) {
	entities, err := s.ListEntities(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	dates, err := s.ListDates(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load dates: %w", err)
	}

	items := make([]ReviewItem, 0, len(entities)+len(dates))
	for _, e := range entities {
		items = append(items, ReviewItem{
			ID: e.ID, Kind: "entity", Label: e.Text, Category: e.Category,
			ICD10Code: e.ICD10Code, Confidence: e.Confidence,
			ReviewStatus: e.ReviewStatus, PageNumber: e.PageNumber,
			Revision: e.Revision,
		})
	}
	for _, d := range dates {
		items = append(items, ReviewItem{
			ID: d.ID, Kind: "date", Label: d.Description, Category: d.DateType,
			Confidence: d.Confidence, ReviewStatus: d.ReviewStatus,
			PageNumber: d.PageNumber, Revision: d.Revision,
		})
	}

	view := &ReviewView{
		PendingReview: []ReviewItem{},
		LowConfidence: []ReviewItem{},
		Reviewed:      []ReviewItem{},
	}
	for _, item := range items {
		if !matchesFilter(item, filter) {
			continue
		}
		view.Total++
		switch {
		case item.ReviewStatus != "pending":
			view.Reviewed = append(view.Reviewed, item)
		case item.Confidence < lowConfidenceBelow:
			view.LowConfidence = append(view.LowConfidence, item)
		default:
			view.PendingReview = append(view.PendingReview, item)
		}
	}
	return view, nil
}

func matchesFilter(item ReviewItem, f FilterSpec) bool {
	switch f.Confidence {
	case "", "all":
	case "low":
		if item.Confidence >= lowConfidenceBelow {
			return false
		}
	case "high":
		if item.Confidence < highConfidenceFrom {
			return false
		}
	}
	if f.Status != "" && item.ReviewStatus != f.Status {
		return false
	}
	if f.EntityType != "" {
		if f.EntityType == "date" {
			if item.Kind != "date" {
				return false
			}
		} else if item.Kind != "entity" || item.Category != f.EntityType {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(item.Label), needle) &&
			!strings.Contains(strings.ToLower(item.ICD10Code), needle) {
			return false
		}
	}
	return true
}

// BulkReview applies one approve or reject action to every selected item.
// Items fail independently; the batch never aborts on a single bad ID. The
// case cache is invalidated once if anything changed.
func (s *Service) BulkReview(ctx context.Context, caseID uuid.UUID, req BulkRequest) (*BulkResult, error) {
	if req.Action != "approve" && req.Action != "reject" {
		return nil, fmt.Errorf("invalid bulk action: %s", req.Action)
	}
	if len(req.EntityIDs) == 0 && len(req.DateIDs) == 0 {
		return nil, fmt.Errorf("empty selection")
	}
	status := "approved"
	if req.Action == "reject" {
		status = "rejected"
	}

	result := &BulkResult{Results: make([]BulkItemResult, 0, len(req.EntityIDs)+len(req.DateIDs))}

	for _, id := range req.EntityIDs {
		item := BulkItemResult{ID: id, Kind: "entity", OK: true}
		if _, err := s.bulkEntityStatus(ctx, caseID, id, status, req.Action, req.Reason); err != nil {
			item.OK = false
			item.Error = err.Error()
		}
		result.Results = append(result.Results, item)
	}
	for _, id := range req.DateIDs {
		item := BulkItemResult{ID: id, Kind: "date", OK: true}
		if _, err := s.bulkDateStatus(ctx, caseID, id, status, req.Action, req.Reason); err != nil {
			item.OK = false
			item.Error = err.Error()
		}
		result.Results = append(result.Results, item)
	}

	for _, r := range result.Results {
		if r.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	if result.Succeeded > 0 {
		s.cache.Invalidate(ctx, cache.ReviewKeys(caseID.String())...)
	}
	return result, nil
}

func (s *Service) bulkEntityStatus(ctx context.Context, caseID, id uuid.UUID, status, action, reason string) (*MedicalEntity, error) {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.CaseID != caseID {
		return nil, fmt.Errorf("entity belongs to a different case")
	}
	old := *e
	e.ReviewStatus = status
	s.stampEntity(ctx, e)
	if err := s.entities.Update(ctx, e, e.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, caseID, audit.Change{
		Action: action, ResourceType: "medical_entity", ResourceID: e.ID,
		FieldName: "review_status", Reason: reason, OldValue: old, NewValue: e,
	})
	return e, nil
}

func (s *Service) bulkDateStatus(ctx context.Context, caseID, id uuid.UUID, status, action, reason string) (*ClinicalDate, error) {
	d, err := s.dates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.CaseID != caseID {
		return nil, fmt.Errorf("date belongs to a different case")
	}
	old := *d
	d.ReviewStatus = status
	s.stampDate(ctx, d)
	if err := s.dates.Update(ctx, d, d.Revision); err != nil {
		return nil, err
	}
	s.record(ctx, caseID, audit.Change{
		Action: action, ResourceType: "clinical_date", ResourceID: d.ID,
		FieldName: "review_status", Reason: reason, OldValue: old, NewValue: d,
	})
	return d, nil
}
