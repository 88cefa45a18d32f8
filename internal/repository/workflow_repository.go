package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/medflow/backend/internal/models"
)

// WorkflowRepository provides persistence access for Workflow entities.
// All correctness under concurrent requests comes from the database: the
// compound unique index on (schedule_ref, assignee_name) backs GetOrCreate
// and whole-document saves are last-write-wins.
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository constructs a repository using the provided gorm DB.
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// GetOrCreate returns the single workflow for the (scheduleRef, assigneeName)
// pair, inserting it when absent. The insert is a single atomic statement
// with ON CONFLICT DO NOTHING; when the row already exists, or another
// caller wins the race and the driver reports a duplicate key, the existing
// row is fetched instead. The caller cannot tell "created" from "found".
func (r *WorkflowRepository) GetOrCreate(ctx context.Context, scheduleRef, assigneeName, departmentName string) (*models.Workflow, error) {
	if scheduleRef == "" || assigneeName == "" || departmentName == "" {
		return nil, errors.Wrap(models.ErrInvalidRequest, "scheduleRef, assigneeName and departmentName are required")
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ScheduleRef:    scheduleRef,
		AssigneeName:   assigneeName,
		DepartmentName: departmentName,
		CurrentStep:    0,
		TotalSteps:     models.TotalWorkflowSteps,
		WorkflowStatus: models.WorkflowStatusNotStarted,
		Steps:          models.DefaultSteps(),
		StartedAt:      now,
		LastUpdated:    now,
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "schedule_ref"}, {Name: "assignee_name"}},
		DoNothing: true,
	}).Create(wf)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return r.FindByPair(ctx, scheduleRef, assigneeName)
		}
		return nil, errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.FindByPair(ctx, scheduleRef, assigneeName)
	}
	return wf, nil
}

// FindByID returns the workflow by id.
func (r *WorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	var wf models.Workflow
	if err := r.db.WithContext(ctx).First(&wf, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "workflow %s", id)
		}
		return nil, errors.WithStack(err)
	}
	return &wf, nil
}

// FindByPair returns the workflow for a (scheduleRef, assigneeName) pair.
func (r *WorkflowRepository) FindByPair(ctx context.Context, scheduleRef, assigneeName string) (*models.Workflow, error) {
	var wf models.Workflow
	err := r.db.WithContext(ctx).
		First(&wf, "schedule_ref = ? AND assignee_name = ?", scheduleRef, assigneeName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "workflow for schedule %s assignee %s", scheduleRef, assigneeName)
		}
		return nil, errors.WithStack(err)
	}
	return &wf, nil
}

// List returns all workflows ordered by start time descending.
func (r *WorkflowRepository) List(ctx context.Context) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.WithContext(ctx).Order("started_at desc").Find(&workflows).Error
	return workflows, errors.WithStack(err)
}

// ListByStatus returns all workflows in the given aggregate status.
func (r *WorkflowRepository) ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.WithContext(ctx).
		Where("workflow_status = ?", status).
		Order("started_at desc").
		Find(&workflows).Error
	return workflows, errors.WithStack(err)
}

// Update persists the whole workflow document after the normalize pass.
// Languages lists and step defaults are repaired in place rather than
// rejected; genuine constraint violations surface as ErrValidationFailed.
func (r *WorkflowRepository) Update(ctx context.Context, wf *models.Workflow) error {
	wf.Normalize()
	if err := wf.Validate(); err != nil {
		return err
	}
	return errors.WithStack(r.db.WithContext(ctx).Save(wf).Error)
}

// DeleteByID removes a single workflow. Downstream media records are left in
// place; deletion is an administrative reset, not a cascade.
func (r *WorkflowRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Workflow{}, "id = ?", id)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "workflow %s", id)
	}
	return nil
}

// DeleteAll removes every workflow and reports how many were deleted.
func (r *WorkflowRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Workflow{})
	if res.Error != nil {
		return 0, errors.WithStack(res.Error)
	}
	return res.RowsAffected, nil
}
