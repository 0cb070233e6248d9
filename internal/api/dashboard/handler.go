// Package dashboard provides the REST API handlers for penpath.
// It exposes endpoints for accounts, progress, challenges, submissions and the leaderboard.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/internal/cache"
	"github.com/aimd54/penpath/internal/locale"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/internal/service/challenges"
	"github.com/aimd54/penpath/internal/service/leaderboard"
	"github.com/aimd54/penpath/internal/service/progress"
	"github.com/aimd54/penpath/internal/service/submissions"
	"github.com/aimd54/penpath/pkg/logger"
)

// AuthService interface for account operations.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName string, lang language.Tag) (*auth.Result, error)
	Login(ctx context.Context, email, password string, lang language.Tag) (*auth.Result, error)
}

// ProgressService interface for level and progress views.
type ProgressService interface {
	Levels(ctx context.Context) ([]models.Level, error)
	Overview(ctx context.Context, userID string) (*progress.Overview, error)
	CareerPath(ctx context.Context, userID string) ([]progress.CareerStep, error)
}

// ChallengeService interface for the active challenge pool.
type ChallengeService interface {
	ListActive(ctx context.Context, session *auth.Session, tab string) (*challenges.ActiveView, error)
	Refresh(ctx context.Context, session *auth.Session) (int, error)
	Get(ctx context.Context, userID, challengeID string) (*challenges.Detail, error)
}

// SubmissionService interface for scoring and history.
type SubmissionService interface {
	Submit(ctx context.Context, session *auth.Session, challengeID, response string) (*submissions.Result, error)
	History(ctx context.Context, userID, tab string) ([]models.Submission, error)
	Get(ctx context.Context, userID, id string) (*models.Submission, error)
	Delete(ctx context.Context, userID, id string) (*submissions.DeleteResult, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	UserStanding(ctx context.Context, userID string) (*leaderboard.Standing, error)
}

// DatabaseHealth reports database reachability.
type DatabaseHealth interface {
	Health() error
}

// CacheHealth reports cache reachability.
type CacheHealth interface {
	Health(ctx context.Context) error
}

// Services groups the handler's collaborators.
type Services struct {
	Auth        AuthService
	Progress    ProgressService
	Challenges  ChallengeService
	Submissions SubmissionService
	Leaderboard LeaderboardService
	Database    DatabaseHealth
	Cache       CacheHealth
}

// Handler handles API requests.
type Handler struct {
	auth        AuthService
	progress    ProgressService
	challenges  ChallengeService
	submissions SubmissionService
	leaderboard LeaderboardService
	database    DatabaseHealth
	cache       CacheHealth
	defaultLang language.Tag
	log         *logger.Logger
}

// NewHandler creates a new handler from the concrete services.
func NewHandler(
	authService *auth.Service,
	progressService *progress.Service,
	challengeService *challenges.Service,
	submissionService *submissions.Service,
	leaderboardService *leaderboard.Service,
	db *repository.DB,
	c cache.Cache,
	defaultLang language.Tag,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(Services{
		Auth:        authService,
		Progress:    progressService,
		Challenges:  challengeService,
		Submissions: submissionService,
		Leaderboard: leaderboardService,
		Database:    db,
		Cache:       c,
	}, defaultLang, log)
}

// NewHandlerWithInterfaces creates a new handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(services Services, defaultLang language.Tag, log *logger.Logger) *Handler {
	return &Handler{
		auth:        services.Auth,
		progress:    services.Progress,
		challenges:  services.Challenges,
		submissions: services.Submissions,
		leaderboard: services.Leaderboard,
		database:    services.Database,
		cache:       services.Cache,
		defaultLang: defaultLang,
		log:         log,
	}
}

// Health reports database and cache health.
// GET /health.
func (h *Handler) Health(c *gin.Context) {
	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if h.database != nil {
		if err := h.database.Health(); err != nil {
			h.log.Error().Err(err).Msg("Database health check failed")
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Health(ctx); err != nil {
			h.log.Error().Err(err).Msg("Cache health check failed")
			checks["cache"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

// Helper functions

// session returns the caller's session. RequireSession guarantees it on authenticated routes.
func (h *Handler) session(c *gin.Context) (*auth.Session, bool) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, apperrors.KindUnauthorized, "authentication required")
	}
	return session, ok
}

// requestLanguage resolves the language for unauthenticated requests.
func (h *Handler) requestLanguage(c *gin.Context) (language.Tag, error) {
	if q := c.Query("language"); q != "" {
		return locale.Parse(q, h.defaultLang)
	}
	return locale.FromAcceptLanguage(c.GetHeader("Accept-Language"), h.defaultLang), nil
}

// parseLimit extracts the limit query parameter. Range checks belong to the service.
func (h *Handler) parseLimit(c *gin.Context) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, apperrors.Newf(apperrors.KindValidation, "invalid limit parameter: %s", limitStr)
	}
	return limit, nil
}

// fail logs err and writes the response for its kind.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)

	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("kind", string(kind)).Str("path", c.FullPath()).Msg(msg)

	_ = c.Error(err)
	h.errorResponse(c, status, kind, publicMessage(err))
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAlreadyCompleted, apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindProvider, apperrors.KindProviderResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the message safe to show a client. Internal details stay in the logs.
func publicMessage(err error) string {
	var e *apperrors.Error
	if !errors.As(err, &e) || e.Kind == apperrors.KindInternal {
		return "internal server error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, kind apperrors.Kind, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error":     message,
		"kind":      kind,
		"timestamp": time.Now().UTC(),
	})
}
