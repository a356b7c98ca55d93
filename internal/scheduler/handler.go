package scheduler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postpilot/postpilot/common"
	"github.com/postpilot/postpilot/internal/dto"
)

// Handler exposes a read-only slot preview so operators can see where the
// next post would land without scheduling anything.
type Handler struct {
	allocator *Allocator
}

func NewHandler(allocator *Allocator) *Handler {
	return &Handler{allocator: allocator}
}

func (h *Handler) NextSlot(c *gin.Context) {
	subjectID, err := strconv.ParseUint(c.Query("subject_id"), 10, 0)
	if err != nil || subjectID < 1 {
		c.JSON(http.StatusBadRequest, common.APIError{Message: "subject_id parameter is required"})
		return
	}

	var minDate *time.Time
	if after := c.Query("after"); after != "" {
		parsed, err := time.Parse(time.RFC3339, after)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.APIError{Message: "after must be RFC3339"})
			return
		}
		minDate = &parsed
	}

	alloc, err := h.allocator.FindNextSlot(c.Request.Context(), uint(subjectID), minDate)
	if err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "failed to find next slot"))
		return
	}

	c.JSON(http.StatusOK, dto.SlotPreviewDTO{
		ScheduledFor: alloc.ScheduledFor,
		Reasoning:    alloc.Reasoning,
	})
}
