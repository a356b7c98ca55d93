package scheduler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/postpilot/postpilot/internal/dto"
	"github.com/postpilot/postpilot/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlotRouter(a *Allocator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/schedule/next-slot", NewHandler(a).NextSlot)
	return r
}

func TestHandler_NextSlot(t *testing.T) {
	a := newTestAllocator(&fakePostLister{}, &fakeSettings{}, mondayMorning)
	r := newSlotRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/schedule/next-slot?subject_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.SlotPreviewDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "peak engagement window for Monday at 08:00", got.Reasoning)
	assert.Equal(t, 8, got.ScheduledFor.Hour())
}

func TestHandler_NextSlot_AfterQuery(t *testing.T) {
	a := newTestAllocator(&fakePostLister{}, &fakeSettings{}, mondayMorning)
	r := newSlotRouter(a)

	req := httptest.NewRequest(http.MethodGet,
		"/schedule/next-slot?subject_id=1&after=2026-03-02T12:00:00Z", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.SlotPreviewDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.ScheduledFor.After(mondayMorning))
	assert.Equal(t, 20, got.ScheduledFor.Hour(), "12:00 itself is excluded, next peak slot is 20:30")
}

func TestHandler_NextSlot_BadRequests(t *testing.T) {
	a := newTestAllocator(&fakePostLister{}, &fakeSettings{}, mondayMorning)
	r := newSlotRouter(a)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing subject_id", path: "/schedule/next-slot"},
		{name: "non-numeric subject_id", path: "/schedule/next-slot?subject_id=abc"},
		{name: "malformed after", path: "/schedule/next-slot?subject_id=1&after=tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
