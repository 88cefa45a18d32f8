package service

import (
	"context"

	"github.com/pkg/errors"

	applog "github.com/example/medflow/backend/internal/log"
	"github.com/example/medflow/backend/internal/models"
	"github.com/example/medflow/backend/internal/repository"
)

// MediaSynchronizer spawns the downstream video and short records for
// completed workflows: once eagerly on the completion transition, and
// on demand through the idempotent backfill scan.
type MediaSynchronizer struct {
	workflows *repository.WorkflowRepository
	media     *repository.MediaRepository
}

// NewMediaSynchronizer builds a synchronizer with dependencies.
func NewMediaSynchronizer(workflows *repository.WorkflowRepository, media *repository.MediaRepository) *MediaSynchronizer {
	return &MediaSynchronizer{workflows: workflows, media: media}
}

// SyncReport counts records created by one backfill pass.
type SyncReport struct {
	Videos int `json:"videos"`
	Shorts int `json:"shorts"`
}

// OnWorkflowCompleted creates one video and one short for a workflow that
// just reached completed. This path fires once per completion transition
// and creates unconditionally; duplicates from replayed transitions are
// reconciled by the existence checks in the backfill scan.
func (s *MediaSynchronizer) OnWorkflowCompleted(ctx context.Context, wf *models.Workflow) error {
	if err := s.media.CreateVideo(ctx, newVideo(wf)); err != nil {
		return errors.Wrapf(err, "create video for workflow %s", wf.ID)
	}
	if err := s.media.CreateShort(ctx, newShort(wf)); err != nil {
		return errors.Wrapf(err, "create short for workflow %s", wf.ID)
	}
	return nil
}

// SyncCompletedWorkflows scans every completed workflow and creates the
// missing video and short records. Each creation is guarded by its own
// existence check on the (scheduleRef, doctorName, completed) triple, so
// the scan is safe to run repeatedly. One workflow's failure is logged and
// skipped; the scan continues.
func (s *MediaSynchronizer) SyncCompletedWorkflows(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	completed, err := s.workflows.ListByStatus(ctx, models.WorkflowStatusCompleted)
	if err != nil {
		return report, err
	}

	for i := range completed {
		wf := &completed[i]

		exists, err := s.media.VideoExists(ctx, wf.ScheduleRef, wf.AssigneeName)
		if err != nil {
			applog.GetLogger().Errorf("video existence check for workflow %s failed: %v", wf.ID, err)
			continue
		}
		if !exists {
			if err := s.media.CreateVideo(ctx, newVideo(wf)); err != nil {
				applog.GetLogger().Errorf("backfill video for workflow %s failed: %v", wf.ID, err)
				continue
			}
			report.Videos++
		}

		exists, err = s.media.ShortExists(ctx, wf.ScheduleRef, wf.AssigneeName)
		if err != nil {
			applog.GetLogger().Errorf("short existence check for workflow %s failed: %v", wf.ID, err)
			continue
		}
		if !exists {
			if err := s.media.CreateShort(ctx, newShort(wf)); err != nil {
				applog.GetLogger().Errorf("backfill short for workflow %s failed: %v", wf.ID, err)
				continue
			}
			report.Shorts++
		}
	}

	return report, nil
}

func newVideo(wf *models.Workflow) *models.Video {
	return &models.Video{
		ScheduleRef:    wf.ScheduleRef,
		DoctorName:     wf.AssigneeName,
		DepartmentName: wf.DepartmentName,
		Status:         models.MediaStatusCompleted,
		CompletedAt:    wf.CompletedAt,
		Tags:           models.MediaTags(wf.DepartmentName, wf.AssigneeName),
	}
}

func newShort(wf *models.Workflow) *models.Short {
	return &models.Short{
		ScheduleRef:    wf.ScheduleRef,
		DoctorName:     wf.AssigneeName,
		DepartmentName: wf.DepartmentName,
		Status:         models.MediaStatusCompleted,
		CompletedAt:    wf.CompletedAt,
		Tags:           models.MediaTags(wf.DepartmentName, wf.AssigneeName),
	}
}
