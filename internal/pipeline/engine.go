package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"gorm.io/datatypes"
)

// Engine owns the run/step state machine. Steps execute strictly in
// order; cancellation is cooperative and observed at every step boundary,
// never mid-step.
type Engine struct {
	runs  RunRepository
	steps []Step
}

func NewEngine(runs RunRepository, steps ...Step) *Engine {
	return &Engine{runs: runs, steps: steps}
}

// StepNames is the canonical ordered step list every run is created with.
// The API process creates runs without registering executable steps; the
// worker process registers the implementations and matches them to the
// run's step rows by name.
var StepNames = []string{StepNameCaption, StepNameSchedule, StepNamePublish}

// CreateRun registers a new run with its pending steps. Fails with
// ErrActiveRunExists when the subject already has a pending/running run.
func (e *Engine) CreateRun(ctx context.Context, subjectID uint, trigger string) (*models.PipelineRun, error) {
	return e.runs.CreateRun(ctx, subjectID, trigger, StepNames)
}

// Execute runs the pipeline to completion. Re-invocation on a completed or
// cancelled run is a no-op; on a partially completed or failed run,
// already-succeeded and skipped steps are not re-executed.
func (e *Engine) Execute(ctx context.Context, runID uint) error {
	run, err := e.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	switch run.Status {
	case config.RunStatusCompleted:
		log.Printf("[pipeline] run %d already completed, nothing to do", runID)
		return nil
	case config.RunStatusCancelled:
		log.Printf("[pipeline] run %d is cancelled, nothing to do", runID)
		return nil
	}

	if err := e.runs.UpdateRunStatus(ctx, runID, config.RunStatusRunning); err != nil {
		return err
	}

	pctx := NewContext(run)

	for _, step := range e.steps {
		row := findStepRow(run.Steps, step.Name())
		if row == nil {
			return fmt.Errorf("run %d has no step row for %q", runID, step.Name())
		}
		if row.Status == config.StepStatusSucceeded || row.Status == config.StepStatusSkipped {
			continue
		}

		// cancellation is checked at the boundary before each step starts
		status, err := e.runs.RunStatus(ctx, runID)
		if err != nil {
			return err
		}
		if status == config.RunStatusCancelled {
			log.Printf("[pipeline] run %d cancelled, stopping before step %q", runID, step.Name())
			return nil
		}

		if err := e.runs.MarkStepRunning(ctx, row.ID); err != nil {
			return err
		}

		result := step.Run(ctx, pctx)
		switch {
		case result.Skipped:
			log.Printf("[pipeline] run %d step %q skipped: %s", runID, step.Name(), result.SkipReason)
			data := marshalStepData(map[string]any{"skip_reason": result.SkipReason})
			if err := e.runs.CompleteStep(ctx, row.ID, config.StepStatusSkipped, data, ""); err != nil {
				return err
			}
		case result.Success:
			if err := e.runs.CompleteStep(ctx, row.ID, config.StepStatusSucceeded, marshalStepData(result.Data), ""); err != nil {
				return err
			}
		default:
			stepErr := result.Err
			if stepErr == nil {
				stepErr = fmt.Errorf("step %q reported failure without an error", step.Name())
			}
			if err := e.runs.CompleteStep(ctx, row.ID, config.StepStatusFailed, nil, stepErr.Error()); err != nil {
				return err
			}
			if err := e.runs.UpdateRunStatus(ctx, runID, config.RunStatusFailed); err != nil {
				return err
			}
			return fmt.Errorf("step %q failed: %w", step.Name(), stepErr)
		}
	}

	return e.runs.UpdateRunStatus(ctx, runID, config.RunStatusCompleted)
}

// Status returns the run with its ordered steps.
func (e *Engine) Status(ctx context.Context, runID uint) (*models.PipelineRun, error) {
	return e.runs.GetRun(ctx, runID)
}

// Cancel requests cooperative cancellation: a step already running
// finishes, the next one is never started.
func (e *Engine) Cancel(ctx context.Context, runID uint) error {
	return e.runs.CancelRun(ctx, runID)
}

func findStepRow(steps []models.PipelineStep, name string) *models.PipelineStep {
	for i := range steps {
		if steps[i].Name == name {
			return &steps[i]
		}
	}
	return nil
}

func marshalStepData(data map[string]any) datatypes.JSON {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
