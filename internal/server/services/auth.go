// Package services contains the account workflows behind the HTTP API:
// registration, login, profile lookup and the OTP-backed verification and
// password reset flows.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
	"github.com/dmitrijs2005/authmatrix/internal/server/notify"
	"github.com/dmitrijs2005/authmatrix/internal/server/passwords"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/users"
	"github.com/google/uuid"
)

// SessionDirective tells the transport what to do with the token cookie.
// A zero MaxAge means clear it.
type SessionDirective struct {
	Token  string
	MaxAge time.Duration
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token   string
	Profile models.Profile
	Session SessionDirective
}

// AuthService composes the credential store, token codec and OTP challenge.
// It holds no per-request state.
type AuthService struct {
	store         users.CredentialStore
	codec         *auth.TokenCodec
	hasher        passwords.Hasher
	otp           *OtpChallenge
	notifier      notify.Notifier
	notifyTimeout time.Duration
	newID         func() string
	logger        logging.Logger

	background sync.WaitGroup
}

// NewAuthService wires the account workflows. A non-positive notifyTimeout
// selects the default.
func NewAuthService(store users.CredentialStore, codec *auth.TokenCodec, hasher passwords.Hasher,
	otp *OtpChallenge, notifier notify.Notifier, notifyTimeout time.Duration, logger logging.Logger) *AuthService {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &AuthService{
		store:         store,
		codec:         codec,
		hasher:        hasher,
		otp:           otp,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		newID:         uuid.NewString,
		logger:        logger.With("module", "auth"),
	}
}

// Register creates an unverified account and sends a welcome mail in the
// background. The mail's outcome never affects the result.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.Profile, error) {
	if err := validateRegistration(email, name, password); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}
	if exists {
		return nil, common.ErrEmailAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrUnexpected, err)
	}

	user := &models.User{
		UserID:       s.newID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}

	s.logger.Info(ctx, "user registered", "email", email, "user_id", user.UserID)
	s.sendWelcome(ctx, email, name)

	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, email, name string) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.SendWelcome(ctx, email, name); err != nil {
			s.logger.Warn(ctx, "welcome mail failed", "email", email, "error", err)
		}
	}()
}

// Wait blocks until background mail sends finish.
func (s *AuthService) Wait() {
	s.background.Wait()
}

// Login checks the password and issues a token. Unknown email and wrong
// password look the same to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "login lookup failed", "email", email, "error", err)
		return nil, common.ErrUnexpected
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored hash unusable", "email", email, "error", err)
		return nil, common.ErrUnexpected
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Email)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "email", email, "error", err)
		return nil, common.ErrUnexpected
	}

	return &LoginResult{
		Token:   token,
		Profile: user.Profile(),
		Session: SessionDirective{Token: token, MaxAge: s.codec.TTL()},
	}, nil
}

// Logout tells the caller to drop the token cookie. Nothing is stored
// server-side, so outstanding tokens stay valid until they expire.
func (s *AuthService) Logout() SessionDirective {
	return SessionDirective{}
}

// GetProfile returns the profile of the account registered under email.
func (s *AuthService) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err)
	}
	p := user.Profile()
	return &p, nil
}

// SendVerificationOtp issues and mails a fresh account verification code.
func (s *AuthService) SendVerificationOtp(ctx context.Context, email string) error {
	return s.otp.IssueVerification(ctx, email)
}

// VerifyOtp marks the account verified when otp matches the stored code.
func (s *AuthService) VerifyOtp(ctx context.Context, email, otp string) error {
	return s.otp.ConsumeVerification(ctx, email, otp)
}

// SendResetOtp issues and mails a password reset code.
func (s *AuthService) SendResetOtp(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	return s.otp.IssueReset(ctx, email)
}

// ResetPassword sets newPassword when otp matches the stored reset code.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: email and new password are required", common.ErrValidation)
	}
	return s.otp.ConsumeReset(ctx, email, otp, newPassword)
}

func validateRegistration(email, name, password string) error {
	var errs []string
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		errs = append(errs, "enter a valid email address")
	}
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "name should not be empty")
	}
	if strings.TrimSpace(password) == "" {
		errs = append(errs, "password should not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}
