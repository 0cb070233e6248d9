package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/penpath/internal/apperrors"
)

type submitRequest struct {
	Response string `json:"response"`
}

// ListChallenges returns the caller's active challenges for a tab.
// A refill is started in the background when the pool is under quota.
// GET /api/v1/challenges?tab=all.
func (h *Handler) ListChallenges(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := h.challenges.ListActive(c.Request.Context(), session, c.Query("tab"))
	if err != nil {
		h.fail(c, err, "Failed to list challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tab":              view.Tab,
		"challenges":       view.Challenges,
		"counts":           view.Counts,
		"refill_triggered": view.RefillTriggered,
		"generated_at":     time.Now().UTC(),
	})
}

// RefreshChallenges generates new challenges for the caller right away.
// POST /api/v1/challenges/refresh.
func (h *Handler) RefreshChallenges(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	created, err := h.challenges.Refresh(c.Request.Context(), session)
	if err != nil {
		h.fail(c, err, "Failed to refresh challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created":      created,
		"generated_at": time.Now().UTC(),
	})
}

// GetChallenge returns a challenge with the caller's status.
// GET /api/v1/challenges/:id.
func (h *Handler) GetChallenge(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	detail, err := h.challenges.Get(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to get challenge")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// SubmitResponse scores a response to a challenge.
// POST /api/v1/challenges/:id/submissions.
func (h *Handler) SubmitResponse(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid request body"), "Invalid submission request")
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), session, c.Param("id"), req.Response)
	if err != nil {
		h.fail(c, err, "Failed to score submission")
		return
	}

	c.JSON(http.StatusCreated, result)
}
