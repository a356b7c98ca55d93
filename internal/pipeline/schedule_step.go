package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
)

const StepNameSchedule = "schedule"

// ScheduleStep turns captioned photos into scheduled posts, allocating a
// slot per photo. Each allocation's minimum date is advanced past the
// previous one so slots inside a single run never collide.
type ScheduleStep struct {
	photos    PhotoStore
	posts     PostStore
	allocator SlotAllocator
}

func NewScheduleStep(photos PhotoStore, posts PostStore, allocator SlotAllocator) *ScheduleStep {
	return &ScheduleStep{photos: photos, posts: posts, allocator: allocator}
}

func (s *ScheduleStep) Name() string { return StepNameSchedule }

func (s *ScheduleStep) Run(ctx context.Context, pctx *Context) StepResult {
	photos, err := s.photos.ListPhotosByStatus(ctx, pctx.SubjectID, config.PhotoStatusCaptioned)
	if err != nil {
		return Fail(fmt.Errorf("list captioned photos: %w", err))
	}
	if len(photos) == 0 {
		return Skip("no captioned photos to schedule")
	}

	var minDate *time.Time
	reasonings := make([]string, 0, len(photos))
	for _, photo := range photos {
		alloc, err := s.allocator.FindNextSlot(ctx, pctx.SubjectID, minDate)
		if err != nil {
			return Fail(fmt.Errorf("find slot for photo %d: %w", photo.ID, err))
		}

		photoID := photo.ID
		post := &models.ScheduledPost{
			SubjectID:     pctx.SubjectID,
			SourcePhotoID: &photoID,
			ImageURL:      photo.ImageURL,
			Caption:       photo.Caption,
			Hashtags:      photo.Hashtags,
			ScheduledFor:  alloc.ScheduledFor,
			Status:        config.PostStatusScheduled,
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			return Fail(err)
		}
		if err := s.photos.UpdatePhotoStatus(ctx, photo.ID, config.PhotoStatusScheduled); err != nil {
			return Fail(err)
		}

		pctx.ScheduledPostIDs = append(pctx.ScheduledPostIDs, post.ID)
		reasonings = append(reasonings, alloc.Reasoning)

		next := alloc.ScheduledFor
		minDate = &next
	}

	return Succeed(map[string]any{
		"scheduled":  len(photos),
		"reasonings": reasonings,
	})
}
