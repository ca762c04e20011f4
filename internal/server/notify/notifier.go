// Package notify delivers one-time passcodes and welcome messages to users.
package notify

import (
	"context"
	"fmt"
)

// Notifier sends user-facing messages. Implementations must honour ctx
// cancellation so callers can bound each send.
type Notifier interface {
	SendVerificationOtp(ctx context.Context, email, otp string) error
	SendResetOtp(ctx context.Context, email, otp string) error
	SendWelcome(ctx context.Context, email, name string) error
}

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func VerificationMessage(email, otp string) Message {
	return Message{
		To:      email,
		Subject: "Account Verification OTP",
		Body: fmt.Sprintf("Your OTP is %s. Verify your account using this OTP.\n"+
			"The code is valid for 24 hours.", otp),
	}
}

func ResetMessage(email, otp string) Message {
	return Message{
		To:      email,
		Subject: "Password Reset OTP",
		Body: fmt.Sprintf("Your OTP for resetting your password is %s.\n"+
			"Use this OTP to proceed with resetting your password. It is valid for 15 minutes.", otp),
	}
}

func WelcomeMessage(email, name string) Message {
	return Message{
		To:      email,
		Subject: "Welcome to AuthMatrix",
		Body:    fmt.Sprintf("Hello %s,\n\nThanks for registering with us!\n\nRegards,\nAuthMatrix Team", name),
	}
}
