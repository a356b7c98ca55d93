package dto

import (
	"encoding/json"
	"time"
)

type JobCreateDTO struct {
	Type         string          `json:"type" validate:"required"`
	Payload      json.RawMessage `json:"payload" validate:"required"`
	Priority     int             `json:"priority" validate:"gte=-10,lte=10"`
	MaxAttempts  int             `json:"max_attempts" validate:"gte=0,lte=20"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
}

type JobResponseDTO struct {
	ID           uint            `json:"id"`
	Type         string          `json:"type"`
	Priority     int             `json:"priority"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	LastError    string          `json:"last_error,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// JobStatsDTO reports per-status job counts for queue introspection.
type JobStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
