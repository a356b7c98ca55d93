package pipeline

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/postpilot/postpilot/common"
	"github.com/postpilot/postpilot/internal/dto"
	"github.com/postpilot/postpilot/internal/job"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/middleware"
)

// Handler exposes the pipeline trigger/status/cancel operations over HTTP.
// Triggering creates the run and enqueues the job that will execute it;
// the work itself happens in the worker process.
type Handler struct {
	engine *Engine
	jobs   job.JobServiceInterface
}

func NewHandler(engine *Engine, jobs job.JobServiceInterface) *Handler {
	return &Handler{engine: engine, jobs: jobs}
}

// Trigger creates a pipeline run for a subject and enqueues its job.
// Returns 409 when the subject already has an active run.
func (h *Handler) Trigger(c *gin.Context) {
	var req dto.PipelineTriggerDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	run, err := h.engine.CreateRun(c.Request.Context(), req.SubjectID, req.Trigger)
	if err != nil {
		if errors.Is(err, ErrActiveRunExists) {
			c.Error(common.CodedErrf(http.StatusConflict, "active_run_exists",
				"subject %d already has an active pipeline run", req.SubjectID))
			return
		}
		c.Error(common.Errf(http.StatusInternalServerError, "failed to create pipeline run"))
		return
	}

	jobID, err := h.jobs.EnqueueRunPipeline(c.Request.Context(), run.ID, req.Priority)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"run_id": run.ID, "job_id": jobID})
}

// Status returns a run with its ordered steps.
func (h *Handler) Status(c *gin.Context) {
	id, ok := runIDParam(c)
	if !ok {
		return
	}

	run, err := h.engine.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			c.Error(common.Errf(http.StatusNotFound, "pipeline run not found"))
			return
		}
		c.Error(common.Errf(http.StatusInternalServerError, "failed to load pipeline run"))
		return
	}

	c.JSON(http.StatusOK, toRunDTO(run))
}

// Cancel requests cooperative cancellation of a run.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := runIDParam(c)
	if !ok {
		return
	}

	if err := h.engine.Cancel(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			c.Error(common.Errf(http.StatusNotFound, "pipeline run not found"))
		case errors.Is(err, ErrRunNotCancellable):
			c.Error(common.CodedErrf(http.StatusConflict, "run_not_cancellable",
				"pipeline run is already in a terminal state"))
		default:
			c.Error(common.Errf(http.StatusInternalServerError, "failed to cancel pipeline run"))
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func runIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, common.APIError{Message: "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

func toRunDTO(run *models.PipelineRun) dto.PipelineRunDTO {
	out := dto.PipelineRunDTO{
		ID:        run.ID,
		SubjectID: run.SubjectID,
		Trigger:   run.Trigger,
		Status:    run.Status,
		CreatedAt: run.CreatedAt,
	}
	for _, step := range run.Steps {
		out.Steps = append(out.Steps, dto.PipelineStepDTO{
			Name:         step.Name,
			Order:        step.Order,
			Status:       step.Status,
			StartedAt:    step.StartedAt,
			CompletedAt:  step.CompletedAt,
			ErrorMessage: step.ErrorMessage,
		})
	}
	return out
}
