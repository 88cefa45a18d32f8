package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/medflow/backend/internal/models"
)

// MediaRepository provides persistence access for the downstream video and
// short collections. Idempotency lives at the application level: callers
// check the (scheduleRef, doctorName, completed) triple before inserting.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository constructs a repository using the provided gorm DB.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// VideoExists reports whether a completed video already exists for the pair.
func (r *MediaRepository) VideoExists(ctx context.Context, scheduleRef, doctorName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("schedule_ref = ? AND doctor_name = ? AND status = ?", scheduleRef, doctorName, models.MediaStatusCompleted).
		Count(&count).Error
	return count > 0, errors.WithStack(err)
}

// CreateVideo persists the video record.
func (r *MediaRepository) CreateVideo(ctx context.Context, video *models.Video) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(video).Error)
}

// ShortExists reports whether a completed short already exists for the pair.
func (r *MediaRepository) ShortExists(ctx context.Context, scheduleRef, doctorName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Short{}).
		Where("schedule_ref = ? AND doctor_name = ? AND status = ?", scheduleRef, doctorName, models.MediaStatusCompleted).
		Count(&count).Error
	return count > 0, errors.WithStack(err)
}

// CreateShort persists the short record.
func (r *MediaRepository) CreateShort(ctx context.Context, short *models.Short) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(short).Error)
}
