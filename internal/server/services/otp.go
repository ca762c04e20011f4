package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
	"github.com/dmitrijs2005/authmatrix/internal/server/notify"
	"github.com/dmitrijs2005/authmatrix/internal/server/passwords"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/users"
)

// CodeGenerator returns a fresh one-time code.
type CodeGenerator func() (string, error)

// RandomCode draws a six-digit code uniformly from [100000, 999999].
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

const defaultNotifyTimeout = 10 * time.Second

// OtpOptions holds the validity windows and the notifier deadline.
type OtpOptions struct {
	VerifyTTL     time.Duration
	ResetTTL      time.Duration
	NotifyTimeout time.Duration
}

// OtpChallenge issues and consumes the verification and password-reset
// codes stored on user records. Every read-check-write goes through
// CredentialStore.Update so concurrent consumers of one code cannot both win.
type OtpChallenge struct {
	store    users.CredentialStore
	notifier notify.Notifier
	hasher   passwords.Hasher
	opts     OtpOptions
	now      func() time.Time
	generate CodeGenerator
	logger   logging.Logger
}

func NewOtpChallenge(store users.CredentialStore, notifier notify.Notifier, hasher passwords.Hasher,
	opts OtpOptions, logger logging.Logger) *OtpChallenge {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	return &OtpChallenge{
		store:    store,
		notifier: notifier,
		hasher:   hasher,
		opts:     opts,
		now:      time.Now,
		generate: RandomCode,
		logger:   logger.With("module", "otp"),
	}
}

// WithClock replaces the time source. Used in tests.
func (c *OtpChallenge) WithClock(now func() time.Time) *OtpChallenge {
	c.now = now
	return c
}

// WithGenerator replaces the code source. Used in tests.
func (c *OtpChallenge) WithGenerator(g CodeGenerator) *OtpChallenge {
	c.generate = g
	return c
}

// errSkip aborts an Update without it being reported as a failure.
var errSkip = errors.New("skip")

// IssueVerification stores a new verification code for email and mails it.
// Already verified accounts are left alone. A failed send keeps the stored
// code; the caller may ask again.
func (c *OtpChallenge) IssueVerification(ctx context.Context, email string) error {
	var code string
	_, err := c.store.Update(ctx, email, func(u *models.User) error {
		if u.IsAccountVerified {
			return errSkip
		}
		var err error
		if code, err = c.generate(); err != nil {
			return fmt.Errorf("%w: generate otp: %w", common.ErrUnexpected, err)
		}
		u.SetVerifyOtp(code, c.now().Add(c.opts.VerifyTTL).UnixMilli())
		return nil
	})
	if errors.Is(err, errSkip) {
		c.logger.Debug(ctx, "account already verified", "email", email)
		return nil
	}
	if err != nil {
		return storeError(err)
	}

	return c.send(ctx, email, func(ctx context.Context) error {
		return c.notifier.SendVerificationOtp(ctx, email, code)
	})
}

// IssueReset stores a new password-reset code for email and mails it.
func (c *OtpChallenge) IssueReset(ctx context.Context, email string) error {
	var code string
	_, err := c.store.Update(ctx, email, func(u *models.User) error {
		var err error
		if code, err = c.generate(); err != nil {
			return fmt.Errorf("%w: generate otp: %w", common.ErrUnexpected, err)
		}
		u.SetResetOtp(code, c.now().Add(c.opts.ResetTTL).UnixMilli())
		return nil
	})
	if err != nil {
		return storeError(err)
	}

	return c.send(ctx, email, func(ctx context.Context) error {
		return c.notifier.SendResetOtp(ctx, email, code)
	})
}

// ConsumeVerification marks the account verified when candidate matches the
// stored, unexpired code. The code is cleared so it works only once.
func (c *OtpChallenge) ConsumeVerification(ctx context.Context, email, candidate string) error {
	if candidate == "" {
		return common.ErrMissingOtp
	}
	_, err := c.store.Update(ctx, email, func(u *models.User) error {
		if err := c.check(u.VerifyOtp, u.VerifyOtpExpireAt, candidate); err != nil {
			return err
		}
		u.IsAccountVerified = true
		u.ClearVerifyOtp()
		return nil
	})
	if err != nil {
		return storeError(err)
	}
	c.logger.Info(ctx, "account verified", "email", email)
	return nil
}

// ConsumeReset replaces the password when candidate matches the stored,
// unexpired reset code, and clears the code.
func (c *OtpChallenge) ConsumeReset(ctx context.Context, email, candidate, newPassword string) error {
	if candidate == "" {
		return common.ErrMissingOtp
	}

	// hash outside the store's critical section
	hash, err := c.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %w", common.ErrUnexpected, err)
	}

	_, err = c.store.Update(ctx, email, func(u *models.User) error {
		if err := c.check(u.ResetOtp, u.ResetOtpExpireAt, candidate); err != nil {
			return err
		}
		u.PasswordHash = hash
		u.ClearResetOtp()
		return nil
	})
	if err != nil {
		return storeError(err)
	}
	c.logger.Info(ctx, "password reset", "email", email)
	return nil
}

// check compares with ==, which is not constant-time.
//
// A code is expired from its expiry instant on: at T+ttl it fails, at
// T+ttl-1ms it passes. The older Java service treated the instant itself as
// still valid (strict >); this matches the boundary the tests pin instead.
func (c *OtpChallenge) check(stored string, expireAt int64, candidate string) error {
	if stored == "" || stored != candidate {
		return common.ErrInvalidOtp
	}
	if c.now().UnixMilli() >= expireAt {
		return common.ErrOtpExpired
	}
	return nil
}

func (c *OtpChallenge) send(ctx context.Context, email string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.NotifyTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		c.logger.Error(ctx, "otp delivery failed", "email", email, "error", err)
		return fmt.Errorf("%w: %w", common.ErrNotificationFailed, err)
	}
	return nil
}

// storeError maps store failures onto the service error set.
func storeError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrUserNotFound
	case errors.Is(err, common.ErrInvalidOtp),
		errors.Is(err, common.ErrOtpExpired),
		errors.Is(err, common.ErrUnexpected):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}
}
