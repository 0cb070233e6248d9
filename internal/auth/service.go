package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/repository"
	"github.com/aimd54/penpath/pkg/logger"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ErrInvalidCredentials is returned by Login for an unknown email or wrong password.
var ErrInvalidCredentials = apperrors.New(apperrors.KindUnauthorized, "invalid email or password")

// AccountRepository interface for account operations.
type AccountRepository interface {
	CreateWithProfile(ctx context.Context, account *models.Account, profile *models.Profile) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Result is a signed token with the session it encodes.
type Result struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

// Service registers accounts and signs users in.
type Service struct {
	accounts   AccountRepository
	issuer     *TokenIssuer
	events     *Events
	log        *logger.Logger
	bcryptCost int
}

// NewService creates a new auth service with concrete repository types.
func NewService(accounts *repository.AccountRepository, issuer *TokenIssuer, events *Events, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(accounts, issuer, events, log)
}

// NewServiceWithInterfaces creates a new auth service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(accounts AccountRepository, issuer *TokenIssuer, events *Events, log *logger.Logger) *Service {
	return &Service{
		accounts:   accounts,
		issuer:     issuer,
		events:     events,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates an account with a fresh profile at the first level and signs it in.
func (s *Service) Register(ctx context.Context, email, password, fullName string, lang language.Tag) (*Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, apperrors.Newf(apperrors.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.New(apperrors.KindConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to look up account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to hash password")
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = email[:strings.Index(email, "@")]
	}

	id := uuid.NewString()
	profile := &models.Profile{
		ID:        id,
		FullName:  fullName,
		CurrentXP: 0,
		LevelID:   models.FirstLevelID,
	}
	account := &models.Account{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.KindConflict, "email already registered")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create account")
	}

	result, err := s.issue(account, lang)
	if err != nil {
		return nil, err
	}

	metrics.RecordAuthEvent(string(EventSignedUp))
	s.events.Publish(Event{Type: EventSignedUp, UserID: account.ID})
	s.log.Info().Str("user_id", account.ID).Msg("Account registered")

	return result, nil
}

// Login verifies credentials and signs the user in.
func (s *Service) Login(ctx context.Context, email, password string, lang language.Tag) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordAuthEvent("login_failed")
			return nil, ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to look up account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		metrics.RecordAuthEvent("login_failed")
		s.log.Debug().Str("user_id", account.ID).Msg("Password mismatch")
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(account, lang)
	if err != nil {
		return nil, err
	}

	metrics.RecordAuthEvent(string(EventSignedIn))
	s.events.Publish(Event{Type: EventSignedIn, UserID: account.ID})

	return result, nil
}

func (s *Service) issue(account *models.Account, lang language.Tag) (*Result, error) {
	token, session, err := s.issuer.Issue(account.ID, account.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to issue token")
	}
	session.Language = lang
	return &Result{Token: token, Session: session}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.New(apperrors.KindValidation, "invalid email address")
	}
	return email, nil
}
