package dto

import "time"

// RunPipelinePayload is the typed payload for run_pipeline jobs. It is
// decoded and validated when the job is claimed; a payload that does not
// match this shape fails the job permanently.
type RunPipelinePayload struct {
	RunID uint `json:"run_id" validate:"required,gt=0"`
}

type PipelineTriggerDTO struct {
	SubjectID uint   `json:"subject_id" validate:"required,gt=0"`
	Trigger   string `json:"trigger" validate:"required,oneof=manual cron"`
	Priority  int    `json:"priority" validate:"gte=-10,lte=10"`
}

type PipelineStepDTO struct {
	Name         string     `json:"name"`
	Order        int        `json:"order"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

type PipelineRunDTO struct {
	ID        uint              `json:"id"`
	SubjectID uint              `json:"subject_id"`
	Trigger   string            `json:"trigger"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Steps     []PipelineStepDTO `json:"steps"`
}
