package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/job"
	"github.com/postpilot/postpilot/internal/models"
	"gorm.io/gorm"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ job.JobRepoInterface = (*JobRepository)(nil)

// claimRetries bounds how many candidate rows a single AcquireNext call
// will race for before giving up until the next poll.
const claimRetries = 3

// Create inserts a new job record into the database. It uses the provided
// context for cancellation and timeout propagation. Returns an error if the
// database operation fails.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get retrieves a single job record by its ID. Returns the job if found,
// or an error if the job doesn't exist or the database query fails.
func (r *JobRepository) Get(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// AcquireNext claims the highest-priority, oldest eligible pending job.
// The claim is a conditional update guarded by the pending status, so two
// concurrent workers can never both win the same row: the loser sees zero
// rows affected and moves on to the next candidate. Returns (nil, nil)
// when no eligible job exists.
func (r *JobRepository) AcquireNext(ctx context.Context, now time.Time) (*models.Job, error) {
	for range claimRetries {
		var candidate models.Job
		err := r.db.WithContext(ctx).
			Where("status = ?", config.JobStatusPending).
			Where("scheduled_for IS NULL OR scheduled_for <= ?", now).
			Order("priority DESC").
			Order("created_at ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find pending job: %w", err)
		}

		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", candidate.ID, config.JobStatusPending).
			Updates(map[string]any{
				"status":     config.JobStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"locked_at":  now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("claim job %d: %w", candidate.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			return r.Get(ctx, candidate.ID)
		}
		// another worker won the race; try the next candidate
	}
	return nil, nil
}

// MarkCompleted transitions a job to its terminal completed state and
// stamps completed_at.
func (r *JobRepository) MarkCompleted(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       config.JobStatusCompleted,
			"completed_at": time.Now(),
			"locked_at":    nil,
		}).Error; err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// RetryLater returns a job to the pending pool with the failure recorded,
// eligible again once availableAt passes.
func (r *JobRepository) RetryLater(ctx context.Context, id uint, lastError string, availableAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        config.JobStatusPending,
			"last_error":    lastError,
			"scheduled_for": availableAt,
			"locked_at":     nil,
		}).Error; err != nil {
		return fmt.Errorf("retry later: %w", err)
	}
	return nil
}

// MarkFailed transitions a job to its terminal failed state, recording the
// final error for operator visibility.
func (r *JobRepository) MarkFailed(ctx context.Context, id uint, lastError string) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       config.JobStatusFailed,
			"last_error":   lastError,
			"completed_at": time.Now(),
			"locked_at":    nil,
		}).Error; err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Release puts a stuck processing job back into the pending pool without
// touching its attempt counter.
func (r *JobRepository) Release(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusProcessing).
		Updates(map[string]any{
			"status":    config.JobStatusPending,
			"locked_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

// ListStuckJobs returns processing jobs whose lock is older than the given
// age, i.e. jobs whose worker likely died mid-execution.
func (r *JobRepository) ListStuckJobs(ctx context.Context, olderThan time.Duration) ([]models.Job, error) {
	var jobs []models.Job
	cutoff := time.Now().Add(-olderThan)
	if err := r.db.WithContext(ctx).
		Where("status = ?", config.JobStatusProcessing).
		Where("locked_at IS NOT NULL AND locked_at < ?", cutoff).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	return jobs, nil
}

// ListByStatus retrieves all jobs in the given status, newest first.
func (r *JobRepository) ListByStatus(ctx context.Context, status string) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// CountByStatus returns the number of jobs per status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
