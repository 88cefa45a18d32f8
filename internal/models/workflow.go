package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkflowStatus describes the aggregate life-cycle state of a production workflow.
type WorkflowStatus string

const (
	WorkflowStatusNotStarted WorkflowStatus = "not_started"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
)

// StepStatus describes the state of a single production step.
// StepStatusFailed is reserved vocabulary: no engine path sets it, but the
// direct status patch accepts it.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// ValidWorkflowStatus reports whether s belongs to the workflow status vocabulary.
func ValidWorkflowStatus(s WorkflowStatus) bool {
	switch s {
	case WorkflowStatusNotStarted, WorkflowStatusInProgress, WorkflowStatusCompleted:
		return true
	}
	return false
}

// ValidStepStatus reports whether s belongs to the step status vocabulary.
func ValidStepStatus(s StepStatus) bool {
	switch s {
	case StepStatusPending, StepStatusActive, StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// StringList is a list of strings that tolerates a bare JSON string on input.
// Legacy documents stored languages as a scalar; decoding coerces it to a
// one-element list instead of rejecting the document.
type StringList []string

// UnmarshalJSON accepts null, a JSON string or a JSON array of strings.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*s = StringList{}
	case string:
		*s = StringList{v}
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return errors.Errorf("languages entry is %T, want string", item)
			}
			out = append(out, str)
		}
		*s = out
	default:
		return errors.Errorf("cannot decode %T into string list", v)
	}
	return nil
}

// FormData is the free-form payload submitted with a step completion.
// Every field is optional.
type FormData struct {
	Name      string     `json:"name"`
	Languages StringList `json:"languages"`
	Date      *time.Time `json:"date"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason"`
}

// Normalize repairs the canonical shape in place: languages is always a
// list, never nil.
func (f *FormData) Normalize() {
	if f.Languages == nil {
		f.Languages = StringList{}
	}
}

// Step is one production stage embedded in a workflow document. Steps are not
// independently addressable; they live inside the workflow's JSON column.
type Step struct {
	StepID      int        `json:"stepId"`
	StepName    string     `json:"stepName"`
	Status      StepStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt"`
	FormData    FormData   `json:"formData"`
}

// StepList is the JSON document column holding all steps of a workflow.
type StepList = datatypes.JSONSlice[Step]

// Workflow tracks content production for one (schedule, assignee) pair.
// The pair is unique across the table; creation goes through the store's
// atomic get-or-create.
type Workflow struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleRef    string         `gorm:"size:64;not null;uniqueIndex:idx_workflows_schedule_assignee" json:"scheduleRef"`
	AssigneeName   string         `gorm:"size:128;not null;uniqueIndex:idx_workflows_schedule_assignee" json:"assigneeName"`
	DepartmentName string         `gorm:"size:128;not null" json:"departmentName"`
	CurrentStep    int            `json:"currentStep"`
	TotalSteps     int            `json:"totalSteps"`
	WorkflowStatus WorkflowStatus `gorm:"size:20;index" json:"workflowStatus"`
	Steps          StepList       `json:"steps"`
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// BeforeCreate is a GORM hook that populates the primary key and defaults.
func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.TotalSteps == 0 {
		w.TotalSteps = TotalWorkflowSteps
	}
	if w.WorkflowStatus == "" {
		w.WorkflowStatus = WorkflowStatusNotStarted
	}
	return nil
}

// StepByID returns the step with the given id, or nil when absent.
func (w *Workflow) StepByID(stepID int) *Step {
	for i := range w.Steps {
		if w.Steps[i].StepID == stepID {
			return &w.Steps[i]
		}
	}
	return nil
}

// AllStepsCompleted reports whether every step reached completed status.
// Computed by scanning the full list; CurrentStep says nothing about
// completeness since steps may finish out of order.
func (w *Workflow) AllStepsCompleted() bool {
	if len(w.Steps) != TotalWorkflowSteps {
		return false
	}
	for i := range w.Steps {
		if w.Steps[i].Status != StepStatusCompleted {
			return false
		}
	}
	return true
}

// Normalize is the explicit repair pass applied on every save and on reads
// of legacy documents: it materializes a missing or short step list from the
// catalog, fills per-step defaults and coerces form data into canonical
// shape. Malformed input is repaired, never rejected.
func (w *Workflow) Normalize() {
	w.TotalSteps = TotalWorkflowSteps

	if len(w.Steps) != TotalWorkflowSteps {
		existing := make(map[int]Step, len(w.Steps))
		for _, s := range w.Steps {
			existing[s.StepID] = s
		}
		steps := DefaultSteps()
		for i := range steps {
			if s, ok := existing[steps[i].StepID]; ok {
				steps[i] = s
			}
		}
		w.Steps = steps
	}

	for i := range w.Steps {
		step := &w.Steps[i]
		if step.StepName == "" {
			step.StepName = StepName(step.StepID)
		}
		if step.Status == "" {
			step.Status = StepStatusPending
		}
		step.FormData.Normalize()
	}
}

// Validate enforces schema constraints before persistence. Violations wrap
// ErrValidationFailed so callers can run the single repair-and-retry pass.
func (w *Workflow) Validate() error {
	if w.ScheduleRef == "" {
		return errors.Wrap(ErrValidationFailed, "scheduleRef is required")
	}
	if w.AssigneeName == "" {
		return errors.Wrap(ErrValidationFailed, "assigneeName is required")
	}
	if w.DepartmentName == "" {
		return errors.Wrap(ErrValidationFailed, "departmentName is required")
	}
	if !ValidWorkflowStatus(w.WorkflowStatus) {
		return errors.Wrapf(ErrValidationFailed, "unknown workflow status %q", w.WorkflowStatus)
	}
	if len(w.Steps) != TotalWorkflowSteps {
		return errors.Wrapf(ErrValidationFailed, "workflow has %d steps, want %d", len(w.Steps), TotalWorkflowSteps)
	}
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.StepID < 1 || step.StepID > TotalWorkflowSteps {
			return errors.Wrapf(ErrValidationFailed, "step id %d out of range", step.StepID)
		}
		if !ValidStepStatus(step.Status) {
			return errors.Wrapf(ErrValidationFailed, "step %d has unknown status %q", step.StepID, step.Status)
		}
		if step.FormData.Languages == nil {
			return errors.Wrapf(ErrValidationFailed, "step %d languages is not a list", step.StepID)
		}
	}
	return nil
}
