package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/medflow/backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// sqlite :memory: gives every pooled connection its own database; pin
	// the pool to one connection so all callers share state.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Workflow{}, &models.Video{}, &models.Short{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestGetOrCreateNewWorkflow(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	wf, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, wf.ID)
	assert.Equal(t, 0, wf.CurrentStep)
	assert.Equal(t, models.TotalWorkflowSteps, wf.TotalSteps)
	assert.Equal(t, models.WorkflowStatusNotStarted, wf.WorkflowStatus)
	assert.False(t, wf.StartedAt.IsZero())
	assert.Nil(t, wf.CompletedAt)
	require.Len(t, wf.Steps, models.TotalWorkflowSteps)
	for _, step := range wf.Steps {
		assert.Equal(t, models.StepStatusPending, step.Status)
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetOrCreateDistinctPairs(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	a, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)
	b, err := repo.GetOrCreate(ctx, "S1", "Dr. B", "Cardiology")
	require.NoError(t, err)
	c, err := repo.GetOrCreate(ctx, "S2", "Dr. A", "Cardiology")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wf, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
			if assert.NoError(t, err) {
				ids[i] = wf.ID
			}
		}(i)
	}
	wg.Wait()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	for _, id := range ids {
		assert.Equal(t, all[0].ID, id)
	}
}

func TestGetOrCreateRequiresFields(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "", "Dr. A", "Cardiology")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	_, err = repo.GetOrCreate(ctx, "S1", "", "Cardiology")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	_, err = repo.GetOrCreate(ctx, "S1", "Dr. A", "")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateNormalizesOnSave(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	wf, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)

	// Simulate a document touched before normalization existed.
	wf.Steps = wf.Steps[:2]
	wf.Steps[0].FormData.Languages = nil
	require.NoError(t, repo.Update(ctx, wf))

	stored, err := repo.FindByID(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps, models.TotalWorkflowSteps)
	assert.Equal(t, models.StringList{}, stored.Steps[0].FormData.Languages)
}

func TestDeleteByID(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	wf, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, wf.ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, wf.ID), models.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	for i, pair := range []struct{ schedule, assignee string }{
		{"S1", "Dr. A"}, {"S2", "Dr. B"}, {"S3", "Dr. C"}, {"S4", "Dr. D"}, {"S5", "Dr. E"},
	} {
		_, err := repo.GetOrCreate(ctx, pair.schedule, pair.assignee, "Cardiology")
		require.NoError(t, err, "pair %d", i)
	}

	count, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListByStatus(t *testing.T) {
	repo := NewWorkflowRepository(newTestDB(t))
	ctx := context.Background()

	wf, err := repo.GetOrCreate(ctx, "S1", "Dr. A", "Cardiology")
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, "S2", "Dr. B", "Cardiology")
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := range wf.Steps {
		wf.Steps[i].Status = models.StepStatusCompleted
		wf.Steps[i].CompletedAt = &now
	}
	wf.WorkflowStatus = models.WorkflowStatusCompleted
	wf.CompletedAt = &now
	require.NoError(t, repo.Update(ctx, wf))

	completed, err := repo.ListByStatus(ctx, models.WorkflowStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, wf.ID, completed[0].ID)
}
