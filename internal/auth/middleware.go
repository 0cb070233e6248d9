package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/locale"
	"github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/pkg/logger"
)

const sessionKey = "penpath.session"

// RequireSession rejects requests without a valid bearer token and stores the
// caller's Session in the gin context. The session language comes from the
// language query parameter, then Accept-Language, then defaultLang.
func RequireSession(issuer *TokenIssuer, defaultLang language.Tag) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if header == "" || !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, apperrors.New(apperrors.KindUnauthorized, "authorization header required"))
			return
		}

		session, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			metrics.RecordAuthEvent("token_rejected")
			abort(c, http.StatusUnauthorized, err)
			return
		}

		lang := locale.FromAcceptLanguage(c.GetHeader("Accept-Language"), defaultLang)
		if q := c.Query("language"); q != "" {
			lang, err = locale.Parse(q, defaultLang)
			if err != nil {
				abort(c, http.StatusBadRequest, err)
				return
			}
		}
		session.Language = lang

		c.Set(sessionKey, session)
		c.Set(logger.UserIDKey, session.UserID)
		c.Next()
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*Session)
	return session, ok && session != nil
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     err.Error(),
		"kind":      apperrors.KindOf(err),
		"timestamp": time.Now().UTC(),
	})
}
