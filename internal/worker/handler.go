package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/dto"
	"github.com/postpilot/postpilot/internal/models"
)

// PermanentError marks a failure that must not consume the retry budget:
// the job fails terminally on first sight.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// PipelineExecutor is the slice of the pipeline engine the dispatcher
// needs.
type PipelineExecutor interface {
	Execute(ctx context.Context, runID uint) error
}

var validate = validator.New()

// Dispatcher decodes a claimed job's typed payload and routes it to the
// matching executor. A payload that does not match its job type's schema
// is a permanent failure, detected here rather than deep inside a handler.
type Dispatcher struct {
	engine PipelineExecutor
}

func NewDispatcher(engine PipelineExecutor) *Dispatcher {
	return &Dispatcher{engine: engine}
}

var _ Handler = (*Dispatcher)(nil)

func (d *Dispatcher) Handle(ctx context.Context, j *models.Job) error {
	switch j.Type {
	case config.JobTypeRunPipeline:
		var payload dto.RunPipelinePayload
		if err := json.Unmarshal(j.Payload, &payload); err != nil {
			return Permanent(fmt.Errorf("malformed %s payload: %w", j.Type, err))
		}
		if err := validate.Struct(payload); err != nil {
			return Permanent(fmt.Errorf("invalid %s payload: %w", j.Type, err))
		}
		return d.engine.Execute(ctx, payload.RunID)
	default:
		return Permanent(fmt.Errorf("unknown job type: %s", j.Type))
	}
}
