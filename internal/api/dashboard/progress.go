package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetLevels returns the Level Table.
// GET /api/v1/levels.
func (h *Handler) GetLevels(c *gin.Context) {
	levels, err := h.progress.Levels(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get levels")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"levels":       levels,
		"total_levels": len(levels),
		"generated_at": time.Now().UTC(),
	})
}

// GetOverview returns the caller's progress overview.
// GET /api/v1/me.
func (h *Handler) GetOverview(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	overview, err := h.progress.Overview(c.Request.Context(), session.UserID)
	if err != nil {
		h.fail(c, err, "Failed to get progress overview")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overview":     overview,
		"generated_at": time.Now().UTC(),
	})
}

// GetCareerPath returns every level with the caller's position on it.
// GET /api/v1/me/career.
func (h *Handler) GetCareerPath(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	steps, err := h.progress.CareerPath(c.Request.Context(), session.UserID)
	if err != nil {
		h.fail(c, err, "Failed to get career path")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"career":       steps,
		"generated_at": time.Now().UTC(),
	})
}
