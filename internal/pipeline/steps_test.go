package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/scheduler"
	"gorm.io/datatypes"
)

// In-memory store fakes shared by the step tests.

type memPhotoStore struct {
	photos map[uint]*models.GeneratedPhoto
}

func newMemPhotoStore(photos ...*models.GeneratedPhoto) *memPhotoStore {
	store := &memPhotoStore{photos: make(map[uint]*models.GeneratedPhoto)}
	for _, p := range photos {
		store.photos[p.ID] = p
	}
	return store
}

func (m *memPhotoStore) ListPhotosByStatus(_ context.Context, subjectID uint, status string) ([]models.GeneratedPhoto, error) {
	var out []models.GeneratedPhoto
	for _, p := range m.photos {
		if p.SubjectID == subjectID && p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPhotoStore) SetPhotoCaption(_ context.Context, id uint, caption string, hashtags datatypes.JSON) error {
	m.photos[id].Caption = caption
	m.photos[id].Hashtags = hashtags
	m.photos[id].Status = config.PhotoStatusCaptioned
	return nil
}

func (m *memPhotoStore) UpdatePhotoStatus(_ context.Context, id uint, status string) error {
	m.photos[id].Status = status
	return nil
}

type memPostStore struct {
	posts  map[uint]*models.ScheduledPost
	nextID uint

	// afterListDue runs after a ListDue snapshot is taken; tests use it to
	// interleave a concurrent claim.
	afterListDue func()
}

func newMemPostStore(posts ...*models.ScheduledPost) *memPostStore {
	store := &memPostStore{posts: make(map[uint]*models.ScheduledPost)}
	for _, p := range posts {
		store.posts[p.ID] = p
		if p.ID > store.nextID {
			store.nextID = p.ID
		}
	}
	return store
}

func (m *memPostStore) CreatePost(_ context.Context, post *models.ScheduledPost) error {
	m.nextID++
	post.ID = m.nextID
	m.posts[post.ID] = post
	return nil
}

func (m *memPostStore) ListDue(_ context.Context, subjectID uint, now time.Time) ([]models.ScheduledPost, error) {
	var out []models.ScheduledPost
	for _, p := range m.posts {
		if p.SubjectID == subjectID && p.Status == config.PostStatusScheduled && !p.ScheduledFor.After(now) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if m.afterListDue != nil {
		m.afterListDue()
	}
	return out, nil
}

var errNotClaimable = errors.New("post is not in a claimable state")

func (m *memPostStore) MarkPublishing(_ context.Context, id uint) error {
	if m.posts[id].Status != config.PostStatusScheduled {
		return errNotClaimable
	}
	m.posts[id].Status = config.PostStatusPublishing
	return nil
}

func (m *memPostStore) MarkPublished(_ context.Context, id uint, instagramPostID, instagramURL string) error {
	m.posts[id].Status = config.PostStatusPublished
	m.posts[id].InstagramPostID = instagramPostID
	m.posts[id].InstagramURL = instagramURL
	m.posts[id].ErrorMessage = ""
	return nil
}

func (m *memPostStore) MarkPostFailed(_ context.Context, id uint, errMsg string) error {
	m.posts[id].Status = config.PostStatusFailed
	m.posts[id].ErrorMessage = errMsg
	return nil
}

func (m *memPostStore) RequeuePost(_ context.Context, id uint, errMsg string) error {
	m.posts[id].Status = config.PostStatusScheduled
	m.posts[id].ErrorMessage = errMsg
	return nil
}

// stubAllocator hands out hourly slots after minDate, recording each call.
type stubAllocator struct {
	base     time.Time
	minDates []*time.Time
}

func (s *stubAllocator) FindNextSlot(_ context.Context, _ uint, minDate *time.Time) (*scheduler.Allocation, error) {
	s.minDates = append(s.minDates, minDate)
	slot := s.base
	for minDate != nil && !slot.After(*minDate) {
		slot = slot.Add(time.Hour)
	}
	return &scheduler.Allocation{ScheduledFor: slot, Reasoning: "test slot"}, nil
}

type stubSettings struct {
	settings *models.AccountSettings
}

func (s *stubSettings) GetSettings(context.Context, uint) (*models.AccountSettings, error) {
	return s.settings, nil
}

func testRunContext(subjectID uint) *Context {
	return NewContext(&models.PipelineRun{ID: 1, SubjectID: subjectID, Trigger: config.RunTriggerManual})
}
