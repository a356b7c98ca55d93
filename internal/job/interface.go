package job

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postpilot/postpilot/internal/dto"
	"github.com/postpilot/postpilot/internal/models"
)

// JobRepoInterface defines the contract for job store operations. The
// worker and the API service share it.
type JobRepoInterface interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uint) (*models.Job, error)
	AcquireNext(ctx context.Context, now time.Time) (*models.Job, error)
	MarkCompleted(ctx context.Context, id uint) error
	RetryLater(ctx context.Context, id uint, lastError string, availableAt time.Time) error
	MarkFailed(ctx context.Context, id uint, lastError string) error
	Release(ctx context.Context, id uint) error
	ListStuckJobs(ctx context.Context, olderThan time.Duration) ([]models.Job, error)
	ListByStatus(ctx context.Context, status string) ([]models.Job, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// JobServiceInterface defines the contract for job business logic.
type JobServiceInterface interface {
	Enqueue(ctx context.Context, dto *dto.JobCreateDTO) (*dto.JobResponseDTO, error)
	EnqueueRunPipeline(ctx context.Context, runID uint, priority int) (uint, error)
	GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error)
	ListJobs(ctx context.Context, status string) ([]dto.JobResponseDTO, error)
	Stats(ctx context.Context) (*dto.JobStatsDTO, error)
}

// JobHandlerInterface defines the contract for HTTP request handlers.
type JobHandlerInterface interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Stats(c *gin.Context)
}
