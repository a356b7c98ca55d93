package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/instagram"
	"github.com/postpilot/postpilot/internal/models"
)

const StepNamePublish = "publish"

// PublishStep publishes the subject's due posts through the publishing
// protocol, serializing them with an inter-post delay. A transient publish
// failure requeues the post and fails the step so the job retry path can
// come back; a permanent failure marks the post failed terminally.
type PublishStep struct {
	posts          PostStore
	photos         PhotoStore
	publisher      Publisher
	interPostDelay time.Duration
	now            func() time.Time
}

func NewPublishStep(posts PostStore, photos PhotoStore, publisher Publisher, interPostDelay time.Duration) *PublishStep {
	return &PublishStep{
		posts:          posts,
		photos:         photos,
		publisher:      publisher,
		interPostDelay: interPostDelay,
		now:            time.Now,
	}
}

func (s *PublishStep) Name() string { return StepNamePublish }

func (s *PublishStep) Run(ctx context.Context, pctx *Context) StepResult {
	due, err := s.posts.ListDue(ctx, pctx.SubjectID, s.now())
	if err != nil {
		return Fail(fmt.Errorf("list due posts: %w", err))
	}
	if len(due) == 0 {
		return Skip("no posts due for publishing")
	}

	published := 0
	for i, post := range due {
		if i > 0 && s.interPostDelay > 0 {
			select {
			case <-time.After(s.interPostDelay):
			case <-ctx.Done():
				return Fail(ctx.Err())
			}
		}

		if err := s.posts.MarkPublishing(ctx, post.ID); err != nil {
			// claimed by another publisher in the meantime
			log.Printf("[pipeline] post %d not claimable, skipping: %v", post.ID, err)
			continue
		}

		result, err := s.publish(ctx, &post)
		if err != nil {
			if IsTransient(err) {
				if reqErr := s.posts.RequeuePost(ctx, post.ID, err.Error()); reqErr != nil {
					log.Printf("[pipeline] requeue post %d: %v", post.ID, reqErr)
				}
			} else {
				if failErr := s.posts.MarkPostFailed(ctx, post.ID, err.Error()); failErr != nil {
					log.Printf("[pipeline] mark post %d failed: %v", post.ID, failErr)
				}
			}
			return Fail(fmt.Errorf("publish post %d: %w", post.ID, err))
		}

		if err := s.posts.MarkPublished(ctx, post.ID, result.PostID, result.PostURL); err != nil {
			return Fail(err)
		}
		if post.SourcePhotoID != nil {
			if err := s.photos.UpdatePhotoStatus(ctx, *post.SourcePhotoID, config.PhotoStatusPublished); err != nil {
				log.Printf("[pipeline] update photo %d status: %v", *post.SourcePhotoID, err)
			}
		}

		pctx.PublishedPostIDs = append(pctx.PublishedPostIDs, post.ID)
		published++
	}

	return Succeed(map[string]any{"published": published})
}

func (s *PublishStep) publish(ctx context.Context, post *models.ScheduledPost) (*instagram.PublishResult, error) {
	if !post.IsCarousel {
		return s.publisher.PublishSingleImage(ctx, post.SubjectID, post.ImageURL, post.Caption)
	}

	var imageURLs []string
	if len(post.CarouselImages) > 0 {
		if err := json.Unmarshal(post.CarouselImages, &imageURLs); err != nil {
			return nil, instagram.Errf(instagram.CodeInvalidCarouselSize, false,
				"post %d carousel images are malformed: %v", post.ID, err)
		}
	}
	return s.publisher.PublishCarousel(ctx, post.SubjectID, imageURLs, post.Caption)
}
