package config

import "time"

type JobStatus = string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

const (
	StepStatusPending   = "pending"
	StepStatusRunning   = "running"
	StepStatusSucceeded = "succeeded"
	StepStatusSkipped   = "skipped"
	StepStatusFailed    = "failed"
)

const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

const (
	PhotoStatusGenerated = "generated"
	PhotoStatusCaptioned = "captioned"
	PhotoStatusScheduled = "scheduled"
	PhotoStatusPublished = "published"
)

const (
	JobTypeRunPipeline = "run_pipeline"

	RunTriggerManual = "manual"
	RunTriggerCron   = "cron"
)

var AllowedJobTypes = []string{JobTypeRunPipeline}

const (
	DefaultMaxAttempts = 3
	DefaultPostsPerDay = 3

	// SlotSearchWindowDays bounds how far ahead the scheduler looks for a
	// free posting slot before falling back.
	SlotSearchWindowDays = 14

	// FallbackHour is used when no slot is free inside the search window:
	// next calendar day at this hour.
	FallbackHour = 12

	DefaultPollInterval = 5 * time.Second
	DefaultLockDuration = time.Minute
)

// DefaultSlot mirrors models.TimeSlot without importing it; the scheduler
// converts these into slot candidates when an account has none configured.
type DefaultSlot struct {
	Hour   int
	Minute int
}

// DefaultTimeSlots are the built-in daily posting times used when an
// account has not configured its own.
var DefaultTimeSlots = []DefaultSlot{
	{Hour: 8, Minute: 0},
	{Hour: 12, Minute: 0},
	{Hour: 18, Minute: 0},
	{Hour: 20, Minute: 30},
}

// PeakHours maps a weekday to the hours with the highest historical
// engagement. Slots falling in a peak hour are preferred on that day.
var PeakHours = map[time.Weekday][]int{
	time.Sunday:    {10, 11, 19, 20},
	time.Monday:    {7, 8, 12, 19, 20},
	time.Tuesday:   {7, 8, 12, 19, 20},
	time.Wednesday: {7, 8, 12, 19, 20},
	time.Thursday:  {7, 8, 12, 19, 20},
	time.Friday:    {7, 8, 12, 17, 18},
	time.Saturday:  {10, 11, 18, 19, 20},
}
