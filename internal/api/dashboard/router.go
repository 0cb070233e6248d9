package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/pkg/logger"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Issuer      *auth.TokenIssuer
	MetricsPath string // empty disables /metrics
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(h *Handler, opts RouterOptions, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))

	r.GET("/health", h.Health)
	if opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", h.Register)
	v1.POST("/auth/login", h.Login)
	v1.GET("/levels", h.GetLevels)
	v1.GET("/leaderboard", h.GetLeaderboard)

	authed := v1.Group("")
	authed.Use(auth.RequireSession(opts.Issuer, h.defaultLang))
	{
		authed.GET("/leaderboard/me", h.GetMyStanding)

		authed.GET("/me", h.GetOverview)
		authed.GET("/me/career", h.GetCareerPath)

		authed.GET("/challenges", h.ListChallenges)
		authed.POST("/challenges/refresh", h.RefreshChallenges)
		authed.GET("/challenges/:id", h.GetChallenge)
		authed.POST("/challenges/:id/submissions", h.SubmitResponse)

		authed.GET("/submissions", h.ListSubmissions)
		authed.GET("/submissions/:id", h.GetSubmission)
		authed.DELETE("/submissions/:id", h.DeleteSubmission)
	}

	return r
}
