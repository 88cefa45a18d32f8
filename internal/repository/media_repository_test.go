package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/medflow/backend/internal/models"
)

func TestVideoExistenceTriple(t *testing.T) {
	repo := NewMediaRepository(newTestDB(t))
	ctx := context.Background()

	exists, err := repo.VideoExists(ctx, "S1", "Dr. A")
	require.NoError(t, err)
	assert.False(t, exists)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateVideo(ctx, &models.Video{
		ScheduleRef:    "S1",
		DoctorName:     "Dr. A",
		DepartmentName: "Cardiology",
		Status:         models.MediaStatusCompleted,
		CompletedAt:    &now,
		Tags:           models.MediaTags("Cardiology", "Dr. A"),
	}))

	exists, err = repo.VideoExists(ctx, "S1", "Dr. A")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.VideoExists(ctx, "S1", "Dr. B")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShortExistenceTriple(t *testing.T) {
	repo := NewMediaRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateShort(ctx, &models.Short{
		ScheduleRef: "S1",
		DoctorName:  "Dr. A",
		Status:      "draft",
	}))

	// Same pair but wrong status: the completed triple is still missing.
	exists, err := repo.ShortExists(ctx, "S1", "Dr. A")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateShort(ctx, &models.Short{
		ScheduleRef: "S1",
		DoctorName:  "Dr. A",
		Status:      models.MediaStatusCompleted,
	}))
	exists, err = repo.ShortExists(ctx, "S1", "Dr. A")
	require.NoError(t, err)
	assert.True(t, exists)
}
