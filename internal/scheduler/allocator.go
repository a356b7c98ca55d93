// Package scheduler allocates future posting slots. The allocation is a
// pure computation over the subject's posting policy and the posts already
// on the calendar; peak-hour slots win within a day, and the search never
// looks further than the configured window before falling back.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/models"
)

type Allocation struct {
	ScheduledFor time.Time
	Reasoning    string
}

// PostLister supplies the posts already occupying calendar slots.
type PostLister interface {
	ListActiveInWindow(ctx context.Context, subjectID uint, from, to time.Time) ([]models.ScheduledPost, error)
}

// SettingsGetter supplies the subject's posting policy, nil when
// unconfigured.
type SettingsGetter interface {
	GetSettings(ctx context.Context, subjectID uint) (*models.AccountSettings, error)
}

type Allocator struct {
	posts    PostLister
	accounts SettingsGetter
	now      func() time.Time
}

func NewAllocator(posts PostLister, accounts SettingsGetter) *Allocator {
	return &Allocator{posts: posts, accounts: accounts, now: time.Now}
}

// FindNextSlot returns the next free posting slot for the subject strictly
// after minDate (or now), plus a human-readable justification.
func (a *Allocator) FindNextSlot(ctx context.Context, subjectID uint, minDate *time.Time) (*Allocation, error) {
	min := a.now()
	if minDate != nil && minDate.After(min) {
		min = *minDate
	}

	postsPerDay, slots, err := a.policy(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	from := dayStart(min)
	to := from.AddDate(0, 0, config.SlotSearchWindowDays+1)
	existing, err := a.posts.ListActiveInWindow(ctx, subjectID, from, to)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]bool, len(existing))
	perDay := make(map[string]int)
	for _, post := range existing {
		occupied[slotKey(post.ScheduledFor)] = true
		perDay[post.ScheduledFor.Format("2006-01-02")]++
	}

	alloc := pickSlot(slots, postsPerDay, occupied, perDay, min)
	return &alloc, nil
}

// ScheduleMultiplePosts allocates count slots in one pass. Each allocation
// joins the occupancy picture before the next one is picked, so the batch
// is strictly increasing, collision-free, and counted against the daily
// quota exactly like posts already persisted.
func (a *Allocator) ScheduleMultiplePosts(ctx context.Context, subjectID uint, count int, startDate *time.Time) ([]Allocation, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}

	min := a.now()
	if startDate != nil && startDate.After(min) {
		min = *startDate
	}

	postsPerDay, slots, err := a.policy(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	// the listing window stretches by count days since every allocation at
	// quota pushes the scan one day further
	from := dayStart(min)
	to := from.AddDate(0, 0, config.SlotSearchWindowDays+count+1)
	existing, err := a.posts.ListActiveInWindow(ctx, subjectID, from, to)
	if err != nil {
		return nil, err
	}

	occupied := make(map[string]bool, len(existing)+count)
	perDay := make(map[string]int)
	for _, post := range existing {
		occupied[slotKey(post.ScheduledFor)] = true
		perDay[post.ScheduledFor.Format("2006-01-02")]++
	}

	allocations := make([]Allocation, 0, count)
	for i := 0; i < count; i++ {
		alloc := pickSlot(slots, postsPerDay, occupied, perDay, min)
		allocations = append(allocations, alloc)
		occupied[slotKey(alloc.ScheduledFor)] = true
		perDay[alloc.ScheduledFor.Format("2006-01-02")]++
		min = alloc.ScheduledFor
	}
	return allocations, nil
}

func (a *Allocator) policy(ctx context.Context, subjectID uint) (int, []models.TimeSlot, error) {
	postsPerDay := config.DefaultPostsPerDay
	slots := defaultSlots()

	settings, err := a.accounts.GetSettings(ctx, subjectID)
	if err != nil {
		return 0, nil, err
	}
	if settings == nil {
		return postsPerDay, slots, nil
	}

	if settings.PostsPerDay > 0 {
		postsPerDay = settings.PostsPerDay
	}
	if len(settings.TimeSlots) > 0 {
		var configured []models.TimeSlot
		if err := json.Unmarshal(settings.TimeSlots, &configured); err != nil {
			return 0, nil, fmt.Errorf("decode time slots for subject %d: %w", subjectID, err)
		}
		if len(configured) > 0 {
			slots = configured
		}
	}
	return postsPerDay, slots, nil
}

// pickSlot scans days forward from minDate. A day already at its quota is
// skipped; within a day, candidate slots are ordered peak-first (ties by
// ascending time), and the first slot that is after minDate, matches the
// weekday, and is unoccupied wins. With nothing free inside the window the
// next calendar day at the fallback hour is used.
func pickSlot(slots []models.TimeSlot, postsPerDay int, occupied map[string]bool, perDay map[string]int, minDate time.Time) Allocation {
	for offset := 0; offset <= config.SlotSearchWindowDays; offset++ {
		day := dayStart(minDate).AddDate(0, 0, offset)
		dayKey := day.Format("2006-01-02")
		if perDay[dayKey] >= postsPerDay {
			continue
		}

		weekday := day.Weekday()
		for _, slot := range orderSlots(slots, weekday) {
			if slot.DayOfWeek != nil && *slot.DayOfWeek != int(weekday) {
				continue
			}

			candidate := time.Date(day.Year(), day.Month(), day.Day(),
				slot.Hour, slot.Minute, 0, 0, minDate.Location())
			if !candidate.After(minDate) {
				continue
			}
			if occupied[slotKey(candidate)] {
				continue
			}

			reasoning := fmt.Sprintf("next available default slot on %s at %02d:%02d",
				weekday, slot.Hour, slot.Minute)
			if isPeakHour(weekday, slot.Hour) {
				reasoning = fmt.Sprintf("peak engagement window for %s at %02d:%02d",
					weekday, slot.Hour, slot.Minute)
			}
			return Allocation{ScheduledFor: candidate, Reasoning: reasoning}
		}
	}

	fallback := dayStart(minDate).AddDate(0, 0, 1).Add(time.Duration(config.FallbackHour) * time.Hour)
	for !fallback.After(minDate) {
		fallback = fallback.AddDate(0, 0, 1)
	}
	return Allocation{
		ScheduledFor: fallback,
		Reasoning: fmt.Sprintf("fallback: no free slot within %d days, using next day at %02d:00",
			config.SlotSearchWindowDays, config.FallbackHour),
	}
}

// orderSlots sorts candidates for one weekday: peak-hour slots first, then
// ascending by time of day.
func orderSlots(slots []models.TimeSlot, weekday time.Weekday) []models.TimeSlot {
	ordered := make([]models.TimeSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := isPeakHour(weekday, ordered[i].Hour), isPeakHour(weekday, ordered[j].Hour)
		if pi != pj {
			return pi
		}
		if ordered[i].Hour != ordered[j].Hour {
			return ordered[i].Hour < ordered[j].Hour
		}
		return ordered[i].Minute < ordered[j].Minute
	})
	return ordered
}

func isPeakHour(weekday time.Weekday, hour int) bool {
	return slices.Contains(config.PeakHours[weekday], hour)
}

func defaultSlots() []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, len(config.DefaultTimeSlots))
	for _, s := range config.DefaultTimeSlots {
		slots = append(slots, models.TimeSlot{Hour: s.Hour, Minute: s.Minute})
	}
	return slots
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func slotKey(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
