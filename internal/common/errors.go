// Package common defines shared constants and sentinel errors used across
// the server layers of AuthMatrix. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")
	ErrUnexpected = errors.New("unexpected error")

	// Account errors.
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrAccountDisabled    = errors.New("user account is disabled")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUserNotFound       = errors.New("user not found")

	// One-time passcode errors.
	ErrMissingOtp         = errors.New("otp is required")
	ErrInvalidOtp         = errors.New("invalid otp")
	ErrOtpExpired         = errors.New("otp has expired")
	ErrNotificationFailed = errors.New("unable to send email")

	// Token errors. ErrInvalidToken covers tokens that parse but name a
	// rejected or mismatching subject.
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature is invalid")
)
