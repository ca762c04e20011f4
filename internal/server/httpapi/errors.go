package httpapi

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/gofiber/fiber/v3"
)

const (
	msgGeneric        = "Something went wrong"
	msgBadBody        = "Invalid request body"
	msgMissingDetails = "Missing details"
	msgAuthFailed     = "Authentication failed"
)

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorResponse{Error: true, Message: message})
}

// messageFor returns the client-facing text for err. Unknown errors get a
// generic message so internals never leak.
func messageFor(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return validationMessage(err)
	case errors.Is(err, common.ErrEmailAlreadyExists):
		return "Email already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Email or Password is incorrect"
	case errors.Is(err, common.ErrAccountDisabled):
		return "Account is disabled"
	case errors.Is(err, common.ErrNotAuthenticated):
		return "Not authenticated"
	case errors.Is(err, common.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, common.ErrMissingOtp):
		return msgMissingDetails
	case errors.Is(err, common.ErrInvalidOtp):
		return "Invalid OTP"
	case errors.Is(err, common.ErrOtpExpired):
		return "OTP has expired"
	case errors.Is(err, common.ErrNotificationFailed):
		return "Unable to send email"
	default:
		return msgGeneric
	}
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), common.ErrValidation.Error()+": "); ok && msg != "" {
		return msg
	}
	return msgMissingDetails
}

// otpStatus maps failures of the OTP and reset endpoints. Anything that is
// not a malformed request is reported as a server-side failure.
func otpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrMissingOtp):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusUnauthorized
	}
}
