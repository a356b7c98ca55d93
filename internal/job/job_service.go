package job

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/postpilot/postpilot/common"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/dto"
	"github.com/postpilot/postpilot/internal/models"
	"gorm.io/datatypes"
)

type JobService struct {
	repo JobRepoInterface
}

func NewJobService(repo JobRepoInterface) *JobService {
	return &JobService{repo: repo}
}

var _ JobServiceInterface = (*JobService)(nil)

// Enqueue validates job creation input, applies business rules,
// constructs a Job model, and persists it. It returns a typed API error
// for validation failures and an internal error for persistence failures.
func (s *JobService) Enqueue(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	if !json.Valid(req.Payload) {
		return nil, common.Errf(http.StatusBadRequest, "payload must be valid JSON")
	}

	if !slices.Contains(config.AllowedJobTypes, req.Type) {
		return nil, common.NewAPIError(
			http.StatusBadRequest,
			"invalid job type",
			map[string]any{
				"provided": req.Type,
				"allowed":  config.AllowedJobTypes,
			},
		)
	}

	switch req.Type {
	case config.JobTypeRunPipeline:
		if err := validatePayload[dto.RunPipelinePayload](req.Payload); err != nil {
			return nil, err
		}
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = config.DefaultMaxAttempts
	}

	job := models.Job{
		Type:         req.Type,
		Priority:     req.Priority,
		Payload:      datatypes.JSON(req.Payload),
		Status:       config.JobStatusPending,
		MaxAttempts:  maxAttempts,
		ScheduledFor: req.ScheduledFor,
	}

	if err := s.repo.Create(ctx, &job); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return nil, common.Errf(http.StatusRequestTimeout, "request was canceled")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, common.Errf(http.StatusRequestTimeout, "request timeout")
		default:
			return nil, common.Errf(http.StatusInternalServerError, "failed to add job to database")
		}
	}

	resp := toJobResponse(&job)
	return &resp, nil
}

// EnqueueRunPipeline enqueues the job that drives one pipeline run. Used
// by the pipeline trigger endpoint and the cron trigger.
func (s *JobService) EnqueueRunPipeline(ctx context.Context, runID uint, priority int) (uint, error) {
	payload, err := json.Marshal(dto.RunPipelinePayload{RunID: runID})
	if err != nil {
		return 0, err
	}

	job := models.Job{
		Type:        config.JobTypeRunPipeline,
		Priority:    priority,
		Payload:     datatypes.JSON(payload),
		Status:      config.JobStatusPending,
		MaxAttempts: config.DefaultMaxAttempts,
	}
	if err := s.repo.Create(ctx, &job); err != nil {
		return 0, common.Errf(http.StatusInternalServerError, "failed to enqueue pipeline job")
	}
	return job.ID, nil
}

// GetJobByID retrieves a job by its ID, mapping repository errors to
// appropriate API errors.
func (s *JobService) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	job, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		return nil, common.Errf(http.StatusNotFound, "job not found")
	}

	resp := toJobResponse(job)
	return &resp, nil
}

// ListJobs retrieves all jobs in the given status.
func (s *JobService) ListJobs(ctx context.Context, status string) ([]dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	allowed := []string{
		config.JobStatusPending, config.JobStatusProcessing,
		config.JobStatusCompleted, config.JobStatusFailed,
	}
	if !slices.Contains(allowed, status) {
		return nil, common.NewAPIError(http.StatusBadRequest, "invalid status", map[string]any{
			"provided": status,
			"allowed":  allowed,
		})
	}

	jobs, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, common.Errf(http.StatusInternalServerError, "failed to list jobs")
	}

	dtos := make([]dto.JobResponseDTO, len(jobs))
	for i := range jobs {
		dtos[i] = toJobResponse(&jobs[i])
	}
	return dtos, nil
}

// Stats reports per-status job counts.
func (s *JobService) Stats(ctx context.Context) (*dto.JobStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, common.Errf(http.StatusInternalServerError, "failed to count jobs")
	}

	return &dto.JobStatsDTO{
		Pending:    counts[config.JobStatusPending],
		Processing: counts[config.JobStatusProcessing],
		Completed:  counts[config.JobStatusCompleted],
		Failed:     counts[config.JobStatusFailed],
	}, nil
}

func toJobResponse(job *models.Job) dto.JobResponseDTO {
	return dto.JobResponseDTO{
		ID:           job.ID,
		Type:         job.Type,
		Priority:     job.Priority,
		Payload:      json.RawMessage(job.Payload),
		Status:       job.Status,
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		LastError:    job.LastError,
		ScheduledFor: job.ScheduledFor,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}
