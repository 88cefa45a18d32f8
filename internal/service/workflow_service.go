package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	applog "github.com/example/medflow/backend/internal/log"
	"github.com/example/medflow/backend/internal/models"
	"github.com/example/medflow/backend/internal/mq"
	"github.com/example/medflow/backend/internal/repository"
)

// WorkflowService is the step transition engine: it validates and applies
// step completions, keeps the aggregate status consistent with the step
// list, and triggers media synchronization on the completion transition.
type WorkflowService struct {
	workflows *repository.WorkflowRepository
	media     *MediaSynchronizer
	recorder  mq.Publisher
}

// NewWorkflowService builds a service with dependencies. recorder may be nil
// when the broker is unavailable; activity recording is then disabled.
func NewWorkflowService(workflows *repository.WorkflowRepository, media *MediaSynchronizer, recorder mq.Publisher) *WorkflowService {
	return &WorkflowService{workflows: workflows, media: media, recorder: recorder}
}

// CreateWorkflow returns the single workflow for the pair, creating it when
// absent. Concurrent calls for the same pair all land on one record.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, scheduleRef, assigneeName, departmentName string) (*models.Workflow, error) {
	wf, err := s.workflows.GetOrCreate(ctx, scheduleRef, assigneeName, departmentName)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, "workflow.created", wf, "")
	return wf, nil
}

// CompleteStep marks one step completed with the submitted form data,
// advances CurrentStep to that step's id and recomputes the aggregate
// status. When the last pending step completes, the workflow is stamped
// completed and downstream media records are created.
//
// No ordering constraint is imposed: completing step 5 before step 3 leaves
// CurrentStep at 5 with step 3 still pending. CurrentStep is "most recently
// completed step id", not a position.
func (s *WorkflowService) CompleteStep(ctx context.Context, workflowID uuid.UUID, stepID int, form *models.FormData) (*models.Workflow, error) {
	if stepID == 0 || form == nil {
		return nil, errors.Wrap(models.ErrInvalidRequest, "stepId and formData are required")
	}

	wf, err := s.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	// Self-healing for legacy or partial records: materialize the full
	// step list before touching it.
	wf.Normalize()

	step := wf.StepByID(stepID)
	if step == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "step %d", stepID)
	}

	form.Normalize()
	now := time.Now().UTC()
	step.Status = models.StepStatusCompleted
	step.CompletedAt = &now
	step.FormData = *form

	wf.CurrentStep = stepID
	wf.LastUpdated = now

	justCompleted := false
	if wf.AllStepsCompleted() {
		if wf.WorkflowStatus != models.WorkflowStatusCompleted {
			justCompleted = true
		}
		wf.WorkflowStatus = models.WorkflowStatusCompleted
		if wf.CompletedAt == nil {
			wf.CompletedAt = &now
		}
	} else {
		wf.WorkflowStatus = models.WorkflowStatusInProgress
	}

	if err := s.persistWithRepair(ctx, wf); err != nil {
		return nil, err
	}

	if justCompleted {
		if err := s.media.OnWorkflowCompleted(ctx, wf); err != nil {
			// The step completion is already persisted; the backfill scan
			// reconciles missing media later.
			applog.GetLogger().Errorf("media sync for workflow %s failed: %v", wf.ID, err)
		}
		s.recordActivity(ctx, "workflow.completed", wf, step.StepName)
	}
	s.recordActivity(ctx, "workflow.step_completed", wf, step.StepName)

	return wf, nil
}

// PatchWorkflow applies a whitelisted field patch. Identity fields and the
// step document are not patchable through this path.
func (s *WorkflowService) PatchWorkflow(ctx context.Context, workflowID uuid.UUID, updates map[string]any) (*models.Workflow, error) {
	if len(updates) == 0 {
		return nil, errors.Wrap(models.ErrInvalidRequest, "updates are required")
	}

	wf, err := s.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	for key, value := range updates {
		switch key {
		case "assigneeName":
			if v, ok := value.(string); ok {
				wf.AssigneeName = v
			}
		case "departmentName":
			if v, ok := value.(string); ok {
				wf.DepartmentName = v
			}
		case "currentStep":
			if v, ok := value.(float64); ok {
				wf.CurrentStep = int(v)
			}
		case "workflowStatus":
			if v, ok := value.(string); ok {
				wf.WorkflowStatus = models.WorkflowStatus(v)
			}
		}
	}
	wf.LastUpdated = time.Now().UTC()

	if err := s.persistWithRepair(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// PatchStepStatus sets one step's status directly, bypassing form handling.
// Any declared vocabulary value is accepted, including the reserved failed
// status. Completing the last step through this path fires the same media
// synchronization as CompleteStep.
func (s *WorkflowService) PatchStepStatus(ctx context.Context, workflowID uuid.UUID, stepID int, status models.StepStatus) (*models.Workflow, error) {
	if stepID == 0 || status == "" {
		return nil, errors.Wrap(models.ErrInvalidRequest, "stepId and status are required")
	}
	if !models.ValidStepStatus(status) {
		return nil, errors.Wrapf(models.ErrInvalidRequest, "unknown step status %q", status)
	}

	wf, err := s.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	wf.Normalize()

	step := wf.StepByID(stepID)
	if step == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "step %d", stepID)
	}

	now := time.Now().UTC()
	step.Status = status
	if status == models.StepStatusCompleted && step.CompletedAt == nil {
		step.CompletedAt = &now
	}
	wf.LastUpdated = now

	justCompleted := false
	if wf.AllStepsCompleted() {
		if wf.WorkflowStatus != models.WorkflowStatusCompleted {
			justCompleted = true
		}
		wf.WorkflowStatus = models.WorkflowStatusCompleted
		if wf.CompletedAt == nil {
			wf.CompletedAt = &now
		}
	} else if wf.WorkflowStatus == models.WorkflowStatusCompleted {
		wf.WorkflowStatus = models.WorkflowStatusInProgress
	} else if wf.CurrentStep > 0 || status != models.StepStatusPending {
		wf.WorkflowStatus = models.WorkflowStatusInProgress
	}

	if err := s.persistWithRepair(ctx, wf); err != nil {
		return nil, err
	}

	if justCompleted {
		if err := s.media.OnWorkflowCompleted(ctx, wf); err != nil {
			applog.GetLogger().Errorf("media sync for workflow %s failed: %v", wf.ID, err)
		}
		s.recordActivity(ctx, "workflow.completed", wf, step.StepName)
	}
	s.recordActivity(ctx, "workflow.step_completed", wf, step.StepName)

	return wf, nil
}

// persistWithRepair saves the workflow, retrying exactly once after a
// normalize pass when validation rejects the document. A second failure
// surfaces the validation error to the caller.
func (s *WorkflowService) persistWithRepair(ctx context.Context, wf *models.Workflow) error {
	err := s.workflows.Update(ctx, wf)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrValidationFailed) {
		return err
	}
	applog.GetLogger().Warnf("workflow %s failed validation, retrying after repair: %v", wf.ID, err)
	wf.Normalize()
	return s.workflows.Update(ctx, wf)
}

// recordActivity notifies the activity recorder. Failures are logged and
// swallowed; the recorder is a best-effort side channel outside the
// primary write.
func (s *WorkflowService) recordActivity(ctx context.Context, event string, wf *models.Workflow, stepName string) {
	if s.recorder == nil {
		return
	}
	payload := map[string]any{
		"event":       event,
		"workflowId":  wf.ID.String(),
		"scheduleRef": wf.ScheduleRef,
		"doctorName":  wf.AssigneeName,
		"stepName":    stepName,
		"status":      wf.WorkflowStatus,
		"occurredAt":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.recorder.Publish(ctx, event, payload); err != nil {
		applog.GetLogger().Warnf("publish %s failed: %v", event, err)
	}
}
