package models

import "time"

// User is the credential record owned by the credential store. OTP fields
// come in pairs: an empty code always has a zero expiry and vice versa.
// Expiry values are epoch milliseconds.
type User struct {
	ID                string
	UserID            string
	Email             string
	Name              string
	PasswordHash      string
	IsAccountVerified bool
	VerifyOtp         string
	VerifyOtpExpireAt int64
	ResetOtp          string
	ResetOtpExpireAt  int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) SetVerifyOtp(code string, expireAt int64) {
	u.VerifyOtp = code
	u.VerifyOtpExpireAt = expireAt
}

func (u *User) ClearVerifyOtp() {
	u.VerifyOtp = ""
	u.VerifyOtpExpireAt = 0
}

func (u *User) SetResetOtp(code string, expireAt int64) {
	u.ResetOtp = code
	u.ResetOtpExpireAt = expireAt
}

func (u *User) ClearResetOtp() {
	u.ResetOtp = ""
	u.ResetOtpExpireAt = 0
}

// Profile returns the public snapshot of u.
func (u *User) Profile() Profile {
	return Profile{
		UserID:            u.UserID,
		Name:              u.Name,
		Email:             u.Email,
		IsAccountVerified: u.IsAccountVerified,
	}
}
