package cases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicase/medicase/internal/platform/auth"
)

var validStatuses = map[string]bool{
	"open": true, "in_progress": true, "review": true,
	"completed": true, "archived": true,
}

var validPriorities = map[string]bool{
	"low": true, "normal": true, "high": true, "urgent": true,
}

var validAssignmentRoles = map[string]bool{
	"physician": true, "medical_assistant": true,
}

type Service struct {
	repo CaseRepository
}

func NewService(repo CaseRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateCase(ctx context.Context, c *Case) error {
	if c.PatientFirstName == "" || c.PatientLastName == "" {
		return fmt.Errorf("patient name is required")
	}
	if len(c.PatientSSNLast4) > 4 {
		return fmt.Errorf("ssn_last4 must be at most 4 digits")
	}
	if c.Status == "" {
		c.Status = "open"
	}
	if !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if c.Priority == "" {
		c.Priority = "normal"
	}
	if !validPriorities[c.Priority] {
		return fmt.Errorf("invalid priority: %s", c.Priority)
	}

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return fmt.Errorf("allocate case number: %w", err)
	}
	c.CaseNumber = fmt.Sprintf("IME-%d-%06d", time.Now().Year(), seq)
	c.CreatedBy = auth.UserIDFromContext(ctx)

	return s.repo.Create(ctx, c)
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateCase(ctx context.Context, c *Case) error {
	if c.Status != "" && !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if c.Priority != "" && !validPriorities[c.Priority] {
		return fmt.Errorf("invalid priority: %s", c.Priority)
	}
	return s.repo.Update(ctx, c)
}

// ChangeStatus moves the case to a new status. The transition itself is
// free-form; report finalization gating lives in the QA workflow, not here.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*Case, error) {
	if !validStatuses[change.NewStatus] {
		return nil, fmt.Errorf("invalid status: %s", change.NewStatus)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Status = change.NewStatus
	if change.Notes != "" {
		c.Notes = change.Notes
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Assign attaches a physician or medical assistant to the case.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, a Assignment) (*Case, error) {
	if !validAssignmentRoles[a.Role] {
		return nil, fmt.Errorf("invalid assignment role: %s", a.Role)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch a.Role {
	case "physician":
		c.AssignedPhysicianID = &a.UserID
	case "medical_assistant":
		c.AssignedAssistantID = &a.UserID
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SearchCases(ctx context.Context, params map[string]string, limit, offset int) ([]*Case, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
