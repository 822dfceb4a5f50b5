package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medicase/medicase/internal/platform/auth"
	"github.com/medicase/medicase/internal/platform/cache"
)

// Unresolved issue weights used for the derived quality score.
var severityPenalty = map[string]float64{
	"low": 2, "medium": 5, "high": 10, "critical": 20,
}

type Service struct {
	repo  Repository
	cache *cache.Collection
}

func NewService(repo Repository, cc *cache.Collection) *Service {
	return &Service{repo: repo, cache: cc}
}

// EnsureStatus returns the case's QA status, initializing the workflow at
// the first stage on first touch.
func (s *Service) EnsureStatus(ctx context.Context, caseID uuid.UUID) (*QAStatus, error) {
	status, err := s.repo.GetStatusByCase(ctx, caseID)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	status = &QAStatus{CaseID: caseID, CurrentStage: Stages[0]}
	if err := s.repo.CreateStatus(ctx, status); err != nil {
		return nil, err
	}

	records := make([]*StageRecord, 0, len(Stages))
	for i, stage := range Stages {
		st := "pending"
		if i == 0 {
			st = "in_progress"
		}
		records = append(records, &StageRecord{CaseID: caseID, Stage: stage, Status: st})
	}
	if err := s.repo.CreateStageRecords(ctx, records); err != nil {
		return nil, err
	}

	log.Info().Str("case_id", caseID.String()).Msg("qa workflow initialized")
	s.cache.Invalidate(ctx, cache.QAKey(caseID.String()))
	return status, nil
}

// Overview assembles the QA dashboard for a case through the collection
// cache.
func (s *Service) Overview(ctx context.Context, caseID uuid.UUID) (*Overview, error) {
	var ov Overview
	err := s.cache.GetOrLoad(ctx, cache.QAKey(caseID.String()), &ov, func(ctx context.Context) (interface{}, error) {
		return s.buildOverview(ctx, caseID)
	})
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

func (s *Service) buildOverview(ctx context.Context, caseID uuid.UUID) (*Overview, error) {
	status, err := s.EnsureStatus(ctx, caseID)
	if err != nil {
		return nil, err
	}
	stages, err := s.repo.ListStages(ctx, caseID)
	if err != nil {
		return nil, err
	}
	issues, err := s.repo.ListIssuesByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	ov := &Overview{Status: status, Stages: stages, Issues: issues, QualityScore: 100}
	var completed int
	for _, st := range stages {
		if st.Status == "completed" {
			completed++
		}
	}
	if len(stages) > 0 {
		ov.CompletionPercent = float64(completed) / float64(len(stages)) * 100
	}
	for _, issue := range issues {
		if issue.Resolved {
			continue
		}
		ov.QualityScore -= severityPenalty[issue.Severity]
		if issue.Severity == "critical" {
			ov.UnresolvedCritical++
		}
	}
	if ov.QualityScore < 0 {
		ov.QualityScore = 0
	}
	return ov, nil
}

// Advance moves the case to the next QA stage. The stage gate blocks the
// transition while any critical issue anywhere in the case is unresolved;
// a blocked advance mutates nothing. Advancing from the last stage completes
// the workflow instead of moving.
func (s *Service) Advance(ctx context.Context, caseID uuid.UUID) (*QAStatus, error) {
	status, err := s.EnsureStatus(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if status.Terminal() {
		return nil, ErrTerminal
	}

	critical, err := s.repo.CountUnresolvedCritical(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if status.CurrentStage == Stages[len(Stages)-1] {
		return s.completeFinalStage(ctx, status, critical)
	}

	machine, err := newStageMachine(status.CurrentStage)
	if err != nil {
		return nil, err
	}
	result := machine.HandleEvent("advance", advancePayload{UnresolvedCritical: critical})
	if result.Error != nil {
		return nil, result.Error
	}
	if !result.Processed || !result.StateChanged {
		return nil, ErrStageBlocked
	}

	if err := s.completeStage(ctx, caseID, status.CurrentStage); err != nil {
		return nil, err
	}
	if err := s.openStage(ctx, caseID, result.CurrentState); err != nil {
		return nil, err
	}

	status.CurrentStage = result.CurrentState
	if err := s.repo.UpdateStatus(ctx, status); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.QAKey(caseID.String()))
	return status, nil
}

func (s *Service) completeFinalStage(ctx context.Context, status *QAStatus, critical int) (*QAStatus, error) {
	if critical > 0 {
		return nil, ErrStageBlocked
	}
	record, err := s.findStage(ctx, status.CaseID, status.CurrentStage)
	if err != nil {
		return nil, err
	}
	if record.Status == "completed" {
		return nil, ErrTerminal
	}
	if err := s.completeStage(ctx, status.CaseID, status.CurrentStage); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.QAKey(status.CaseID.String()))
	return status, nil
}

// Reject terminates the workflow from any stage. A free-text reason is
// required.
func (s *Service) Reject(ctx context.Context, caseID uuid.UUID, reason string) (*QAStatus, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	status, err := s.EnsureStatus(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if status.Terminal() {
		return nil, ErrTerminal
	}

	machine, err := newStageMachine(status.CurrentStage)
	if err != nil {
		return nil, err
	}
	result := machine.HandleEvent("reject", nil)
	if result.Error != nil {
		return nil, result.Error
	}
	if !result.Processed {
		return nil, fmt.Errorf("reject not allowed from stage %s", status.CurrentStage)
	}

	record, err := s.findStage(ctx, caseID, status.CurrentStage)
	if err != nil {
		return nil, err
	}
	record.Status = "failed"
	record.Notes = reason
	if err := s.repo.UpdateStage(ctx, record); err != nil {
		return nil, err
	}

	status.CurrentStage = StageRejected
	status.RejectionReason = reason
	if err := s.repo.UpdateStatus(ctx, status); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.QAKey(caseID.String()))
	return status, nil
}

// AddIssue raises a QA finding against the case's current stage.
func (s *Service) AddIssue(ctx context.Context, caseID uuid.UUID, issue *Issue) error {
	if !validIssueCategories[issue.Category] {
		return fmt.Errorf("invalid issue category: %s", issue.Category)
	}
	if !validIssueSeverities[issue.Severity] {
		return fmt.Errorf("invalid issue severity: %s", issue.Severity)
	}
	if issue.Description == "" {
		return fmt.Errorf("description is required")
	}

	status, err := s.EnsureStatus(ctx, caseID)
	if err != nil {
		return err
	}
	issue.CaseID = caseID
	if issue.Stage == "" {
		issue.Stage = status.CurrentStage
	}
	if err := s.repo.CreateIssue(ctx, issue); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.QAKey(caseID.String()))
	return nil
}

// ResolveIssue marks a finding as resolved, stamping the resolving user.
func (s *Service) ResolveIssue(ctx context.Context, issueID uuid.UUID) (*Issue, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Resolved {
		return issue, nil
	}

	userID := auth.UserIDFromContext(ctx)
	now := time.Now()
	issue.Resolved = true
	issue.ResolvedBy = &userID
	issue.ResolvedAt = &now
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.QAKey(issue.CaseID.String()))
	return issue, nil
}

func (s *Service) completeStage(ctx context.Context, caseID uuid.UUID, stage string) error {
	record, err := s.findStage(ctx, caseID, stage)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(ctx)
	now := time.Now()
	record.Status = "completed"
	record.CompletedAt = &now
	record.CompletedBy = &userID
	return s.repo.UpdateStage(ctx, record)
}

func (s *Service) openStage(ctx context.Context, caseID uuid.UUID, stage string) error {
	record, err := s.findStage(ctx, caseID, stage)
	if err != nil {
		return err
	}
	record.Status = "in_progress"
	return s.repo.UpdateStage(ctx, record)
}

func (s *Service) findStage(ctx context.Context, caseID uuid.UUID, stage string) (*StageRecord, error) {
	records, err := s.repo.ListStages(ctx, caseID)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Stage == stage {
			return r, nil
		}
	}
	return nil, ErrNotFound
}
