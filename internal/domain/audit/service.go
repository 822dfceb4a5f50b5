package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
	"github.com/medicase/medicase/internal/platform/middleware"
)

type Service struct {
	repo  Repository
	cache *cache.Collection
}

func NewService(repo Repository, cc *cache.Collection) *Service {
	return &Service{repo: repo, cache: cc}
}

// Record appends one audit entry. Actor identity comes from the request
// principal, network details from the captured request info. Old and new
// values are stored as JSON documents; their confidence scores, when present,
// are lifted into dedicated columns so confidence drift is queryable without
// unpacking the JSON.
func (s *Service) Record(ctx context.Context, caseID uuid.UUID, ch Change) error {
	entry := &AuditLogEntry{
		CaseID:       caseID,
		Action:       ch.Action,
		ResourceType: ch.ResourceType,
		ResourceID:   ch.ResourceID,
		FieldName:    ch.FieldName,
		Reason:       ch.Reason,
	}

	if ch.OldValue != nil {
		raw, err := json.Marshal(ch.OldValue)
		if err != nil {
			return fmt.Errorf("marshal old value: %w", err)
		}
		entry.OldValue = raw
	}
	if ch.NewValue != nil {
		raw, err := json.Marshal(ch.NewValue)
		if err != nil {
			return fmt.Errorf("marshal new value: %w", err)
		}
		entry.NewValue = raw
	}
	entry.ConfidenceBefore = confidenceOf(entry.OldValue)
	entry.ConfidenceAfter = confidenceOf(entry.NewValue)

	p := auth.PrincipalFromContext(ctx)
	entry.ActorID = p.UserID
	entry.ActorName = p.Name

	info := middleware.RequestInfoFromContext(ctx)
	entry.IPAddress = info.IPAddress
	entry.UserAgent = info.UserAgent

	if err := s.repo.Create(ctx, entry); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.AuditKey(caseID.String()))
	return nil
}

// confidenceOf extracts the confidence score from a stored record snapshot.
// Values without one (or non-object values) yield nil.
func confidenceOf(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	v, ok := m["confidence"].(float64)
	if !ok {
		return nil
	}
	return &v
}

// ListByCase returns the raw trail for a case, newest first, through the
// collection cache.
func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*AuditLogEntry, error) {
	var items []*AuditLogEntry
	err := s.cache.GetOrLoad(ctx, cache.AuditKey(caseID.String()), &items, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByCase(ctx, caseID)
	})
	return items, err
}

// ListByResource returns the history of one entity or date, newest first.
func (s *Service) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*AuditLogEntry, error) {
	return s.repo.ListByResource(ctx, resourceType, resourceID)
}

// Trail returns the case's audit history grouped by calendar day for the
// trail viewer.
func (s *Service) Trail(ctx context.Context, caseID uuid.UUID) ([]TrailDay, error) {
	entries, err := s.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return BuildTrail(entries), nil
}
