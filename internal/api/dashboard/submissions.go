package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListSubmissions returns the caller's submission history.
// GET /api/v1/submissions?tab=all.
func (h *Handler) ListSubmissions(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	history, err := h.submissions.History(c.Request.Context(), session.UserID, c.Query("tab"))
	if err != nil {
		h.fail(c, err, "Failed to list submissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions":       history,
		"total_submissions": len(history),
		"generated_at":      time.Now().UTC(),
	})
}

// GetSubmission returns one of the caller's submissions.
// GET /api/v1/submissions/:id.
func (h *Handler) GetSubmission(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	submission, err := h.submissions.Get(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to get submission")
		return
	}

	c.JSON(http.StatusOK, submission)
}

// DeleteSubmission deletes a submission and takes back its XP.
// DELETE /api/v1/submissions/:id.
func (h *Handler) DeleteSubmission(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	result, err := h.submissions.Delete(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to delete submission")
		return
	}

	c.JSON(http.StatusOK, result)
}
