package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/penpath/internal/apperrors"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and returns a session token.
// POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid request body"), "Invalid register request")
		return
	}

	lang, err := h.requestLanguage(c)
	if err != nil {
		h.fail(c, err, "Invalid language")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName, lang)
	if err != nil {
		h.fail(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Login verifies credentials and returns a session token.
// POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid request body"), "Invalid login request")
		return
	}

	lang, err := h.requestLanguage(c)
	if err != nil {
		h.fail(c, err, "Invalid language")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, lang)
	if err != nil {
		h.fail(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, result)
}
