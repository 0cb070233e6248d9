// Package auth issues and verifies session tokens and manages accounts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/config"
)

// Token verification failures. Both are authentication errors.
var (
	ErrTokenExpired = apperrors.New(apperrors.KindUnauthorized, "token expired")
	ErrTokenInvalid = apperrors.New(apperrors.KindUnauthorized, "invalid token")
)

const defaultTokenTTL = 24 * time.Hour

// Session identifies the caller of a request.
type Session struct {
	UserID    string       `json:"user_id"`
	Email     string       `json:"email"`
	Language  language.Tag `json:"-"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer from auth configuration.
func NewTokenIssuer(cfg *config.AuthConfig) *TokenIssuer {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the user.
func (t *TokenIssuer) Issue(userID, email string) (string, *Session, error) {
	now := t.now().Truncate(time.Second)
	session := &Session{
		UserID:    userID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(t.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, session, nil
}

// Parse verifies a token and returns its session. Language is left unset.
func (t *TokenIssuer) Parse(tokenString string) (*Session, error) {
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || c.Subject == "" {
		return nil, ErrTokenInvalid
	}

	session := &Session{
		UserID: c.Subject,
		Email:  c.Email,
	}
	if c.IssuedAt != nil {
		session.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time
	}
	return session, nil
}
