package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrPostNotClaimable is returned when a post could not be moved to
// publishing because another publisher got there first or the post left
// the scheduled state.
var ErrPostNotClaimable = errors.New("post is not in a claimable state")

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) CreatePost(ctx context.Context, post *models.ScheduledPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *PostRepository) GetPost(ctx context.Context, id uint) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found: %w", err)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// ListActiveInWindow returns the subject's scheduled/publishing posts with
// scheduled_for inside [from, to). The slot allocator uses this to build
// its occupancy picture.
func (r *PostRepository) ListActiveInWindow(ctx context.Context, subjectID uint, from, to time.Time) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("status IN ?", []string{config.PostStatusScheduled, config.PostStatusPublishing}).
		Where("scheduled_for >= ? AND scheduled_for < ?", from, to).
		Order("scheduled_for ASC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list active posts: %w", err)
	}
	return posts, nil
}

// ListDue returns the subject's posts whose slot has arrived and are still
// waiting to be published.
func (r *PostRepository) ListDue(ctx context.Context, subjectID uint, now time.Time) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("status = ?", config.PostStatusScheduled).
		Where("scheduled_for <= ?", now).
		Order("scheduled_for ASC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}
	return posts, nil
}

// MarkPublishing claims a post for publication. The conditional update
// guarantees only one publisher proceeds for a given post.
func (r *PostRepository) MarkPublishing(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.ScheduledPost{}).
		Where("id = ? AND status = ?", id, config.PostStatusScheduled).
		Update("status", config.PostStatusPublishing)
	if res.Error != nil {
		return fmt.Errorf("mark publishing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotClaimable
	}
	return nil
}

func (r *PostRepository) MarkPublished(ctx context.Context, id uint, instagramPostID, instagramURL string) error {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            config.PostStatusPublished,
			"instagram_post_id": instagramPostID,
			"instagram_url":     instagramURL,
			"error_message":     "",
		}).Error; err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

func (r *PostRepository) MarkPostFailed(ctx context.Context, id uint, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        config.PostStatusFailed,
			"error_message": errMsg,
		}).Error; err != nil {
		return fmt.Errorf("mark post failed: %w", err)
	}
	return nil
}

// RequeuePost returns a publishing post to scheduled so a later cycle can
// try it again after a transient publish failure.
func (r *PostRepository) RequeuePost(ctx context.Context, id uint, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledPost{}).
		Where("id = ? AND status = ?", id, config.PostStatusPublishing).
		Updates(map[string]any{
			"status":        config.PostStatusScheduled,
			"error_message": errMsg,
		}).Error; err != nil {
		return fmt.Errorf("requeue post: %w", err)
	}
	return nil
}

// ListPhotosByStatus returns a subject's generated photos in the given
// pipeline stage, oldest first.
func (r *PostRepository) ListPhotosByStatus(ctx context.Context, subjectID uint, status string) ([]models.GeneratedPhoto, error) {
	var photos []models.GeneratedPhoto
	if err := r.db.WithContext(ctx).
		Where("subject_id = ? AND status = ?", subjectID, status).
		Order("created_at ASC").
		Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

func (r *PostRepository) CreatePhoto(ctx context.Context, photo *models.GeneratedPhoto) error {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

// SetPhotoCaption stores the generated caption with its hashtag list and
// advances the photo to the captioned stage.
func (r *PostRepository) SetPhotoCaption(ctx context.Context, id uint, caption string, hashtags datatypes.JSON) error {
	if err := r.db.WithContext(ctx).Model(&models.GeneratedPhoto{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"caption":  caption,
			"hashtags": hashtags,
			"status":   config.PhotoStatusCaptioned,
		}).Error; err != nil {
		return fmt.Errorf("set photo caption: %w", err)
	}
	return nil
}

func (r *PostRepository) UpdatePhotoStatus(ctx context.Context, id uint, status string) error {
	if err := r.db.WithContext(ctx).Model(&models.GeneratedPhoto{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("update photo status: %w", err)
	}
	return nil
}
