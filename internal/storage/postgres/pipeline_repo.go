package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/pipeline"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PipelineRepository struct {
	db *gorm.DB
}

func NewPipelineRepository(db *gorm.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

var _ pipeline.RunRepository = (*PipelineRepository)(nil)

// CreateRun inserts a new pipeline run with one pending step row per name,
// in order. At most one pending/running run may exist per subject: the
// count is a fast path for the common conflict, and the partial unique
// index on pipeline_runs enforces the invariant when two creators race
// past the count at the same time.
func (r *PipelineRepository) CreateRun(ctx context.Context, subjectID uint, trigger string, stepNames []string) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		SubjectID: subjectID,
		Trigger:   trigger,
		Status:    config.RunStatusPending,
	}
	for i, name := range stepNames {
		run.Steps = append(run.Steps, models.PipelineStep{
			Name:   name,
			Order:  i + 1,
			Status: config.StepStatusPending,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.PipelineRun{}).
			Where("subject_id = ?", subjectID).
			Where("status IN ?", []string{config.RunStatusPending, config.RunStatusRunning}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count active runs: %w", err)
		}
		if active > 0 {
			return pipeline.ErrActiveRunExists
		}
		if err := tx.Create(run).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return pipeline.ErrActiveRunExists
			}
			return fmt.Errorf("create run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun retrieves a run with its steps ordered by execution order.
func (r *PipelineRepository) GetRun(ctx context.Context, id uint) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		First(&run, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// RunStatus reads only the status column; the engine calls this at every
// step boundary to observe cancellation.
func (r *PipelineRepository) RunStatus(ctx context.Context, id uint) (string, error) {
	var status string
	err := r.db.WithContext(ctx).Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Pluck("status", &status).Error
	if err != nil {
		return "", fmt.Errorf("run status: %w", err)
	}
	if status == "" {
		return "", pipeline.ErrRunNotFound
	}
	return status, nil
}

func (r *PipelineRepository) UpdateRunStatus(ctx context.Context, id uint, status string) error {
	if err := r.db.WithContext(ctx).Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// CancelRun moves a pending/running run to cancelled. Steps already past
// their boundary finish on their own; terminal runs are left untouched and
// reported as not cancellable.
func (r *PipelineRepository) CancelRun(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.PipelineRun{}).
		Where("id = ? AND status IN ?", id, []string{config.RunStatusPending, config.RunStatusRunning}).
		Update("status", config.RunStatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancel run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetRun(ctx, id); err != nil {
			return err
		}
		return pipeline.ErrRunNotCancellable
	}
	return nil
}

// MarkStepRunning stamps a step as started.
func (r *PipelineRepository) MarkStepRunning(ctx context.Context, stepID uint) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.PipelineStep{}).
		Where("id = ?", stepID).
		Updates(map[string]any{
			"status":     config.StepStatusRunning,
			"started_at": now,
		}).Error; err != nil {
		return fmt.Errorf("mark step running: %w", err)
	}
	return nil
}

// CompleteStep records a step's terminal state along with its result data
// or error message.
func (r *PipelineRepository) CompleteStep(ctx context.Context, stepID uint, status string, resultData datatypes.JSON, errMsg string) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.PipelineStep{}).
		Where("id = ?", stepID).
		Updates(map[string]any{
			"status":        status,
			"completed_at":  now,
			"result_data":   resultData,
			"error_message": errMsg,
		}).Error; err != nil {
		return fmt.Errorf("complete step: %w", err)
	}
	return nil
}
