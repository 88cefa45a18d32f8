package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaStatusCompleted is the only status this engine ever writes to media
// records; the media collections carry other statuses set elsewhere.
const MediaStatusCompleted = "completed"

// Video is the downstream long-form record spawned when a workflow completes.
// The (ScheduleRef, DoctorName, Status) triple is the de-facto idempotency
// key checked before insertion; there is no formal unique constraint.
type Video struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleRef    string                      `gorm:"size:64;not null;index" json:"scheduleRef"`
	DoctorName     string                      `gorm:"size:128;not null" json:"doctorName"`
	DepartmentName string                      `gorm:"size:128" json:"departmentName"`
	Status         string                      `gorm:"size:20;index" json:"status"`
	CompletedAt    *time.Time                  `json:"completedAt"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that populates the primary key.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Short is the downstream short-form record, structurally identical to Video
// but kept in its own collection.
type Short struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleRef    string                      `gorm:"size:64;not null;index" json:"scheduleRef"`
	DoctorName     string                      `gorm:"size:128;not null" json:"doctorName"`
	DepartmentName string                      `gorm:"size:128" json:"departmentName"`
	Status         string                      `gorm:"size:20;index" json:"status"`
	CompletedAt    *time.Time                  `json:"completedAt"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that populates the primary key.
func (s *Short) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MediaTags seeds the tag list for records created by the completion path.
func MediaTags(departmentName, doctorName string) datatypes.JSONSlice[string] {
	return datatypes.JSONSlice[string]{departmentName, doctorName, "workflow-completed"}
}
