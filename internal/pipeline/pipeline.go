// Package pipeline runs the ordered content-production workflow for one
// subject: caption freshly generated photos, schedule them into posting
// slots, publish the posts that are due. Steps are idempotent and compute
// their own input sets, so a partially completed run can be resumed.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/postpilot/postpilot/internal/instagram"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/providers"
	"github.com/postpilot/postpilot/internal/scheduler"
	"gorm.io/datatypes"
)

var (
	ErrActiveRunExists   = errors.New("an active pipeline run already exists for this subject")
	ErrRunNotFound       = errors.New("pipeline run not found")
	ErrRunNotCancellable = errors.New("pipeline run is already in a terminal state")
)

// Context is the in-memory accumulator threaded through a run's steps.
// Earlier steps record the IDs they produced so later steps can log and
// report per-run work, while still querying the store for their real
// input set.
type Context struct {
	RunID     uint
	SubjectID uint
	Trigger   string

	CaptionedPhotoIDs []uint
	ScheduledPostIDs  []uint
	PublishedPostIDs  []uint
	Captions          map[uint]string
}

func NewContext(run *models.PipelineRun) *Context {
	return &Context{
		RunID:     run.ID,
		SubjectID: run.SubjectID,
		Trigger:   run.Trigger,
		Captions:  make(map[uint]string),
	}
}

// StepResult is the uniform outcome shape every step returns. Skipped
// means the step found nothing to do; it counts as success and does not
// affect the run status.
type StepResult struct {
	Success    bool
	Skipped    bool
	SkipReason string
	Data       map[string]any
	Err        error
}

func Succeed(data map[string]any) StepResult {
	return StepResult{Success: true, Data: data}
}

func Skip(reason string) StepResult {
	return StepResult{Success: true, Skipped: true, SkipReason: reason}
}

func Fail(err error) StepResult {
	return StepResult{Err: err}
}

// Step is one independently executable stage of a run.
type Step interface {
	Name() string
	Run(ctx context.Context, pctx *Context) StepResult
}

// RunRepository is the persistence contract the engine drives.
type RunRepository interface {
	CreateRun(ctx context.Context, subjectID uint, trigger string, stepNames []string) (*models.PipelineRun, error)
	GetRun(ctx context.Context, id uint) (*models.PipelineRun, error)
	RunStatus(ctx context.Context, id uint) (string, error)
	UpdateRunStatus(ctx context.Context, id uint, status string) error
	CancelRun(ctx context.Context, id uint) error
	MarkStepRunning(ctx context.Context, stepID uint) error
	CompleteStep(ctx context.Context, stepID uint, status string, resultData datatypes.JSON, errMsg string) error
}

// PhotoStore is the slice of photo persistence the steps need.
type PhotoStore interface {
	ListPhotosByStatus(ctx context.Context, subjectID uint, status string) ([]models.GeneratedPhoto, error)
	SetPhotoCaption(ctx context.Context, id uint, caption string, hashtags datatypes.JSON) error
	UpdatePhotoStatus(ctx context.Context, id uint, status string) error
}

// PostStore is the slice of scheduled-post persistence the steps need.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.ScheduledPost) error
	ListDue(ctx context.Context, subjectID uint, now time.Time) ([]models.ScheduledPost, error)
	MarkPublishing(ctx context.Context, id uint) error
	MarkPublished(ctx context.Context, id uint, instagramPostID, instagramURL string) error
	MarkPostFailed(ctx context.Context, id uint, errMsg string) error
	RequeuePost(ctx context.Context, id uint, errMsg string) error
}

// SlotAllocator hands out future posting slots.
type SlotAllocator interface {
	FindNextSlot(ctx context.Context, subjectID uint, minDate *time.Time) (*scheduler.Allocation, error)
}

// Publisher is the publishing protocol surface the publish step drives.
type Publisher interface {
	PublishSingleImage(ctx context.Context, subjectID uint, imageURL, caption string) (*instagram.PublishResult, error)
	PublishCarousel(ctx context.Context, subjectID uint, imageURLs []string, caption string) (*instagram.PublishResult, error)
}

// SettingsGetter supplies the subject's caption policy.
type SettingsGetter interface {
	GetSettings(ctx context.Context, subjectID uint) (*models.AccountSettings, error)
}

// IsTransient reports whether an error from a collaborator is eligible
// for the job retry path. Unknown errors are treated as transient since
// they are usually network-shaped.
func IsTransient(err error) bool {
	var ie *instagram.Error
	if errors.As(err, &ie) {
		return ie.Transient
	}
	var pe *providers.Error
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return true
}
