package postgres

import (
	"context"
	"testing"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testStepNames = []string{"caption", "schedule", "publish"}

func TestPipelineRepository_CreateRun(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)
	assert.Equal(t, config.RunStatusPending, run.Status)
	require.Len(t, run.Steps, 3)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 3)
	for i, name := range testStepNames {
		assert.Equal(t, name, got.Steps[i].Name)
		assert.Equal(t, i+1, got.Steps[i].Order)
		assert.Equal(t, config.StepStatusPending, got.Steps[i].Status)
	}
}

func TestPipelineRepository_CreateRun_ActiveRunConflict(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)
	ctx := context.Background()

	first, err := repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)

	_, err = repo.CreateRun(ctx, 1, config.RunTriggerCron, testStepNames)
	assert.ErrorIs(t, err, pipeline.ErrActiveRunExists)

	// a different subject is unaffected
	_, err = repo.CreateRun(ctx, 2, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)

	// a running run still blocks
	require.NoError(t, repo.UpdateRunStatus(ctx, first.ID, config.RunStatusRunning))
	_, err = repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	assert.ErrorIs(t, err, pipeline.ErrActiveRunExists)

	// a terminal run does not
	require.NoError(t, repo.UpdateRunStatus(ctx, first.ID, config.RunStatusCompleted))
	_, err = repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)
}

func TestPipelineRepository_ActiveRunUniqueIndex(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)
	ctx := context.Background()

	_, err := repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)

	// an active run inserted behind the repository's back, the way a
	// concurrent creator that also counted zero would: the partial unique
	// index rejects it at the schema level
	err = db.Create(&models.PipelineRun{
		SubjectID: 1,
		Trigger:   config.RunTriggerCron,
		Status:    config.RunStatusRunning,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// terminal rows do not occupy the index
	require.NoError(t, db.Model(&models.PipelineRun{}).
		Where("subject_id = ?", 1).
		Update("status", config.RunStatusCompleted).Error)
	require.NoError(t, db.Create(&models.PipelineRun{
		SubjectID: 1,
		Trigger:   config.RunTriggerManual,
		Status:    config.RunStatusPending,
	}).Error)
}

func TestPipelineRepository_GetRun_NotFound(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)

	_, err := repo.GetRun(context.Background(), 999)
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)
}

func TestPipelineRepository_CancelRun(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)

	require.NoError(t, repo.CancelRun(ctx, run.ID))

	status, err := repo.RunStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, config.RunStatusCancelled, status)

	// terminal runs cannot be cancelled again
	err = repo.CancelRun(ctx, run.ID)
	assert.ErrorIs(t, err, pipeline.ErrRunNotCancellable)

	err = repo.CancelRun(ctx, 999)
	assert.ErrorIs(t, err, pipeline.ErrRunNotFound)
}

func TestPipelineRepository_StepLifecycle(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewPipelineRepository(db)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, 1, config.RunTriggerManual, testStepNames)
	require.NoError(t, err)
	stepID := run.Steps[0].ID

	require.NoError(t, repo.MarkStepRunning(ctx, stepID))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, config.StepStatusRunning, got.Steps[0].Status)
	assert.NotNil(t, got.Steps[0].StartedAt)

	data := datatypes.JSON([]byte(`{"captioned":2}`))
	require.NoError(t, repo.CompleteStep(ctx, stepID, config.StepStatusSucceeded, data, ""))

	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, config.StepStatusSucceeded, got.Steps[0].Status)
	assert.NotNil(t, got.Steps[0].CompletedAt)
	assert.JSONEq(t, `{"captioned":2}`, string(got.Steps[0].ResultData))

	require.NoError(t, repo.CompleteStep(ctx, run.Steps[1].ID, config.StepStatusFailed, nil, "no slot available"))
	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, config.StepStatusFailed, got.Steps[1].Status)
	assert.Equal(t, "no slot available", got.Steps[1].ErrorMessage)
}
