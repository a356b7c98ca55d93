package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestJobRepository_Create(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	job := &models.Job{
		Type:        config.JobTypeRunPipeline,
		Payload:     datatypes.JSON([]byte(`{"run_id":1}`)),
		Status:      config.JobStatusPending,
		MaxAttempts: 3,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotZero(t, job.ID)

	got, err := repo.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
}

func TestJobRepository_AcquireNext_Ordering(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	// same priority: oldest first; higher priority beats age
	old := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3, CreatedAt: base}
	newer := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3, CreatedAt: base.Add(time.Minute)}
	urgent := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3, Priority: 5, CreatedAt: base.Add(2 * time.Minute)}
	for _, j := range []*models.Job{old, newer, urgent} {
		require.NoError(t, repo.Create(ctx, j))
	}

	first, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, urgent.ID, first.ID)
	assert.Equal(t, config.JobStatusProcessing, first.Status)
	assert.Equal(t, 1, first.Attempts)
	assert.NotNil(t, first.StartedAt)

	second, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, old.ID, second.ID)

	third, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, newer.ID, third.ID)

	none, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestJobRepository_AcquireNext_RespectsScheduledFor(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	job := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3, ScheduledFor: &future}
	require.NoError(t, repo.Create(ctx, job))

	claimed, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	assert.Nil(t, claimed, "job scheduled in the future must not be claimed")

	claimed, err = repo.AcquireNext(ctx, future.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
}

func TestJobRepository_AcquireNext_ClaimIsConditional(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3}
	require.NoError(t, repo.Create(ctx, job))

	// simulate a concurrent claimer winning between find and update
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("status", config.JobStatusProcessing).Error)

	claimed, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	assert.Nil(t, claimed, "a job that left pending must not be claimed again")
}

func TestJobRepository_RetryLater(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 3}
	require.NoError(t, repo.Create(ctx, job))

	claimed, err := repo.AcquireNext(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, claimed)

	nextRun := time.Now().Add(10 * time.Second)
	require.NoError(t, repo.RetryLater(ctx, job.ID, "caption provider rate limited", nextRun))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusPending, got.Status)
	assert.Equal(t, "caption provider rate limited", got.LastError)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.ScheduledFor)
	assert.Nil(t, got.LockedAt)
}

func TestJobRepository_MarkFailed(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.Job{Type: "run_pipeline", Status: "pending", MaxAttempts: 1}
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.MarkFailed(ctx, job.ID, "subject has no connected account"))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusFailed, got.Status)
	assert.Equal(t, "subject has no connected account", got.LastError)
	assert.NotNil(t, got.CompletedAt)
}

func TestJobRepository_StuckJobs(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	stale := time.Now().Add(-10 * time.Minute)
	job := &models.Job{Type: "run_pipeline", Status: config.JobStatusProcessing, MaxAttempts: 3, LockedAt: &stale}
	require.NoError(t, repo.Create(ctx, job))

	stuck, err := repo.ListStuckJobs(ctx, 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, job.ID, stuck[0].ID)

	require.NoError(t, repo.Release(ctx, job.ID))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusPending, got.Status)
	assert.Nil(t, got.LockedAt)

	stuck, err = repo.ListStuckJobs(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestJobRepository_CountByStatus(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	for _, status := range []string{"pending", "pending", "completed", "failed"} {
		require.NoError(t, repo.Create(ctx, &models.Job{Type: "run_pipeline", Status: status, MaxAttempts: 3}))
	}

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[config.JobStatusPending])
	assert.Equal(t, int64(1), counts[config.JobStatusCompleted])
	assert.Equal(t, int64(1), counts[config.JobStatusFailed])
	assert.Zero(t, counts[config.JobStatusProcessing])
}
