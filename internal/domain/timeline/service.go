package timeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/domain/examination"
	"github.com/medicase/medicase/internal/domain/extraction"
	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
)

var validSeverities = map[string]bool{
	"minor": true, "moderate": true, "major": true,
}

// Date types that count as milestones when projected onto the timeline.
var milestoneDateTypes = map[string]bool{
	"injury_date": true, "surgery": true,
}

// DateSource provides the approved clinical dates projected as document
// events.
type DateSource interface {
	ListDates(ctx context.Context, caseID uuid.UUID) ([]*extraction.ClinicalDate, error)
}

// ExamSource provides the examinations projected as examination events.
type ExamSource interface {
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*examination.Examination, error)
}

type Service struct {
	repo  Repository
	dates DateSource
	exams ExamSource
	cache *cache.Collection
}

func NewService(repo Repository, dates DateSource, exams ExamSource, cc *cache.Collection) *Service {
	return &Service{repo: repo, dates: dates, exams: exams, cache: cc}
}

// AddEvent records a manual timeline event.
func (s *Service) AddEvent(ctx context.Context, e *Event) error {
	if e.EventDate.IsZero() {
		return fmt.Errorf("event_date is required")
	}
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.Severity != "" && !validSeverities[e.Severity] {
		return fmt.Errorf("invalid severity: %s", e.Severity)
	}
	e.Source = "manual"
	e.SourceID = nil
	e.CreatedBy = auth.UserIDFromContext(ctx)

	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.TimelineKey(e.CaseID.String()))
	return nil
}

// DeleteEvent removes a manual event. Derived events have no stored row to
// delete.
func (s *Service) DeleteEvent(ctx context.Context, caseID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.TimelineKey(caseID.String()))
	return nil
}

// BuildTimeline merges manual events with events derived from approved
// clinical dates and examinations, ordered oldest first.
func (s *Service) BuildTimeline(ctx context.Context, caseID uuid.UUID) ([]*Event, error) {
	var events []*Event
	err := s.cache.GetOrLoad(ctx, cache.TimelineKey(caseID.String()), &events, func(ctx context.Context) (interface{}, error) {
		return s.buildTimeline(ctx, caseID)
	})
	return events, err
}

func (s *Service) buildTimeline(ctx context.Context, caseID uuid.UUID) ([]*Event, error) {
	manual, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	events := append([]*Event{}, manual...)

	dates, err := s.dates.ListDates(ctx, caseID)
	if err != nil {
		return nil, err
	}
	for _, d := range dates {
		if d.ReviewStatus != "approved" {
			continue
		}
		id := d.ID
		events = append(events, &Event{
			ID:          uuid.New(),
			CaseID:      caseID,
			EventDate:   d.Date,
			Type:        d.DateType,
			Title:       d.DateType,
			Description: d.Description,
			Milestone:   milestoneDateTypes[d.DateType],
			Source:      "document",
			SourceID:    &id,
		})
	}

	exams, err := s.exams.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	for _, ex := range exams {
		id := ex.ID
		events = append(events, &Event{
			ID:          uuid.New(),
			CaseID:      caseID,
			EventDate:   ex.ExamDate,
			Type:        "examination",
			Title:       "Independent medical examination",
			Description: ex.Location,
			Milestone:   true,
			Source:      "examination",
			SourceID:    &id,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].EventDate.Before(events[j].EventDate)
	})
	return events, nil
}
