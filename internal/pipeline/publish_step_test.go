package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/instagram"
	"github.com/postpilot/postpilot/internal/mocks"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var publishNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func newPublishStep(posts PostStore, photos PhotoStore, publisher Publisher) *PublishStep {
	step := NewPublishStep(posts, photos, publisher, 0)
	step.now = func() time.Time { return publishNow }
	return step
}

func TestPublishStep_SkipsWhenNothingDue(t *testing.T) {
	posts := newMemPostStore(
		&models.ScheduledPost{ID: 1, SubjectID: 1, Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(time.Hour)},
	)
	publisher := new(mocks.PublisherMock)

	step := newPublishStep(posts, newMemPhotoStore(), publisher)

	result := step.Run(context.Background(), testRunContext(1))

	assert.True(t, result.Skipped)
	assert.Equal(t, "no posts due for publishing", result.SkipReason)
	publisher.AssertNotCalled(t, "PublishSingleImage")
}

func TestPublishStep_PublishesSingleImage(t *testing.T) {
	photoID := uint(7)
	posts := newMemPostStore(
		&models.ScheduledPost{
			ID: 1, SubjectID: 1, SourcePhotoID: &photoID,
			ImageURL: "https://cdn.example.com/1.jpg", Caption: "Golden hour.",
			Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(-time.Hour),
		},
	)
	photos := newMemPhotoStore(
		&models.GeneratedPhoto{ID: photoID, SubjectID: 1, Status: config.PhotoStatusScheduled},
	)

	publisher := new(mocks.PublisherMock)
	publisher.On("PublishSingleImage", mock.Anything, uint(1), "https://cdn.example.com/1.jpg", "Golden hour.").
		Return(&instagram.PublishResult{PostID: "17900001", PostURL: "https://instagram.com/p/abc"}, nil)

	step := newPublishStep(posts, photos, publisher)
	pctx := testRunContext(1)

	result := step.Run(context.Background(), pctx)

	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"published": 1}, result.Data)
	publisher.AssertExpectations(t)

	post := posts.posts[1]
	assert.Equal(t, config.PostStatusPublished, post.Status)
	assert.Equal(t, "17900001", post.InstagramPostID)
	assert.Equal(t, "https://instagram.com/p/abc", post.InstagramURL)
	assert.Equal(t, config.PhotoStatusPublished, photos.photos[photoID].Status)
	assert.Equal(t, []uint{1}, pctx.PublishedPostIDs)
}

func TestPublishStep_PublishesCarousel(t *testing.T) {
	posts := newMemPostStore(
		&models.ScheduledPost{
			ID: 1, SubjectID: 1, Caption: "Trip recap",
			IsCarousel:     true,
			CarouselImages: datatypes.JSON([]byte(`["https://cdn.example.com/1.jpg","https://cdn.example.com/2.jpg"]`)),
			Status:         config.PostStatusScheduled, ScheduledFor: publishNow.Add(-time.Hour),
		},
	)

	publisher := new(mocks.PublisherMock)
	publisher.On("PublishCarousel", mock.Anything, uint(1),
		[]string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, "Trip recap").
		Return(&instagram.PublishResult{PostID: "17900002"}, nil)

	step := newPublishStep(posts, newMemPhotoStore(), publisher)

	result := step.Run(context.Background(), testRunContext(1))

	require.True(t, result.Success)
	publisher.AssertExpectations(t)
	assert.Equal(t, config.PostStatusPublished, posts.posts[1].Status)
}

func TestPublishStep_TransientFailureRequeuesPost(t *testing.T) {
	posts := newMemPostStore(
		&models.ScheduledPost{
			ID: 1, SubjectID: 1, ImageURL: "https://cdn.example.com/1.jpg",
			Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(-time.Hour),
		},
	)

	publisher := new(mocks.PublisherMock)
	publisher.On("PublishSingleImage", mock.Anything, uint(1), mock.Anything, mock.Anything).
		Return(nil, instagram.Errf(instagram.CodeRateLimited, true, "limit reached"))

	step := newPublishStep(posts, newMemPhotoStore(), publisher)

	result := step.Run(context.Background(), testRunContext(1))

	assert.False(t, result.Success)
	require.Error(t, result.Err)
	assert.True(t, IsTransient(result.Err))

	// the post goes back to scheduled so the retried job can pick it up
	post := posts.posts[1]
	assert.Equal(t, config.PostStatusScheduled, post.Status)
	assert.Contains(t, post.ErrorMessage, "limit reached")
}

func TestPublishStep_PermanentFailureMarksPostFailed(t *testing.T) {
	posts := newMemPostStore(
		&models.ScheduledPost{
			ID: 1, SubjectID: 1, ImageURL: "https://cdn.example.com/1.jpg",
			Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(-time.Hour),
		},
	)

	publisher := new(mocks.PublisherMock)
	publisher.On("PublishSingleImage", mock.Anything, uint(1), mock.Anything, mock.Anything).
		Return(nil, instagram.Errf(instagram.CodeNotConnected, false, "no connected account"))

	step := newPublishStep(posts, newMemPhotoStore(), publisher)

	result := step.Run(context.Background(), testRunContext(1))

	assert.False(t, result.Success)
	require.Error(t, result.Err)
	assert.False(t, IsTransient(result.Err))

	post := posts.posts[1]
	assert.Equal(t, config.PostStatusFailed, post.Status)
	assert.Contains(t, post.ErrorMessage, "no connected account")
}

func TestPublishStep_UnclaimablePostIsSkipped(t *testing.T) {
	// two due posts, the first already claimed by another publisher
	claimed := &models.ScheduledPost{
		ID: 1, SubjectID: 1, Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(-2 * time.Hour),
	}
	open := &models.ScheduledPost{
		ID: 2, SubjectID: 1, ImageURL: "https://cdn.example.com/2.jpg",
		Status: config.PostStatusScheduled, ScheduledFor: publishNow.Add(-time.Hour),
	}
	posts := newMemPostStore(claimed, open)
	// the claim is stolen after the step builds its due list
	posts.afterListDue = func() { claimed.Status = config.PostStatusPublishing }

	publisher := new(mocks.PublisherMock)
	publisher.On("PublishSingleImage", mock.Anything, uint(1), "https://cdn.example.com/2.jpg", "").
		Return(&instagram.PublishResult{PostID: "17900003"}, nil)

	step := newPublishStep(posts, newMemPhotoStore(), publisher)

	result := step.Run(context.Background(), testRunContext(1))

	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"published": 1}, result.Data)
	publisher.AssertExpectations(t)
	assert.Equal(t, config.PostStatusPublished, posts.posts[2].Status)
}
