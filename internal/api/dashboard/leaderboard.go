package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the top writers.
// GET /api/v1/leaderboard?limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c)
	if err != nil {
		h.fail(c, err, "Invalid leaderboard limit")
		return
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "Failed to get leaderboard")
		return
	}

	h.log.Debug().
		Int("limit", limit).
		Int("entries", len(entries)).
		Msg("Retrieved leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetMyStanding returns the caller's leaderboard position.
// GET /api/v1/leaderboard/me.
func (h *Handler) GetMyStanding(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	standing, err := h.leaderboard.UserStanding(c.Request.Context(), session.UserID)
	if err != nil {
		h.fail(c, err, "Failed to get user standing")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"standing":     standing,
		"generated_at": time.Now().UTC(),
	})
}
