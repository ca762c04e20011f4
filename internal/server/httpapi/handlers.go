package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsVerified bool   `json:"isVerified"`
	Token      string `json:"token"`
}

type verifyOtpRequest struct {
	Otp string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Otp         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type debugAuthResponse struct {
	HasToken bool   `json:"hasToken"`
	Source   string `json:"source,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Valid    bool   `json:"valid"`
	Failure  string `json:"failure,omitempty"`
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) register(c fiber.Ctx) error {
	var req registerRequest
	if err := c.Bind().Body(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, msgBadBody)
	}

	profile, err := s.svc.Register(c.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmailAlreadyExists):
			return writeError(c, fiber.StatusConflict, messageFor(err))
		case errors.Is(err, common.ErrValidation):
			return writeError(c, fiber.StatusBadRequest, messageFor(err))
		default:
			return err
		}
	}

	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (s *Server) login(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().Body(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, msgBadBody)
	}

	res, err := s.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		msg := msgAuthFailed
		if errors.Is(err, common.ErrInvalidCredentials) || errors.Is(err, common.ErrAccountDisabled) {
			msg = messageFor(err)
		}
		return writeError(c, loginStatus(err), msg)
	}

	s.setSessionCookie(c, res.Session)
	return c.JSON(loginResponse{
		Email:      res.Profile.Email,
		Name:       res.Profile.Name,
		IsVerified: res.Profile.IsAccountVerified,
		Token:      res.Token,
	})
}

// isAuthenticated is public, so the gateway has not looked at the token.
// Resolve it here so the answer is truthful.
func (s *Server) isAuthenticated(c fiber.Ctx) error {
	_, ok := s.resolve(c)
	return c.JSON(ok)
}

func (s *Server) logout(c fiber.Ctx) error {
	s.setSessionCookie(c, s.svc.Logout())
	return c.JSON(messageResponse{Message: "Logged out successfully!"})
}

func (s *Server) profile(c fiber.Ctx) error {
	id, _ := auth.IdentityFromContext(c.Context())

	p, err := s.svc.GetProfile(c.Context(), id.Email)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return writeError(c, fiber.StatusNotFound, messageFor(err))
		}
		return err
	}
	return c.JSON(p)
}

func (s *Server) sendOtp(c fiber.Ctx) error {
	id, _ := auth.IdentityFromContext(c.Context())

	if err := s.svc.SendVerificationOtp(c.Context(), id.Email); err != nil {
		return s.otpFailure(c, err)
	}
	return c.JSON(messageResponse{Message: "OTP sent successfully"})
}

func (s *Server) verifyOtp(c fiber.Ctx) error {
	id, _ := auth.IdentityFromContext(c.Context())

	var req verifyOtpRequest
	if err := c.Bind().Body(&req); err != nil || strings.TrimSpace(req.Otp) == "" {
		return writeError(c, fiber.StatusBadRequest, msgMissingDetails)
	}

	if err := s.svc.VerifyOtp(c.Context(), id.Email, strings.TrimSpace(req.Otp)); err != nil {
		return s.otpFailure(c, err)
	}
	return c.JSON(messageResponse{Message: "Account verified successfully"})
}

func (s *Server) sendResetOtp(c fiber.Ctx) error {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		return writeError(c, fiber.StatusBadRequest, msgMissingDetails)
	}

	if err := s.svc.SendResetOtp(c.Context(), email); err != nil {
		return s.otpFailure(c, err)
	}
	return c.JSON(messageResponse{Message: "Reset OTP sent successfully"})
}

func (s *Server) resetPassword(c fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.Bind().Body(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, msgBadBody)
	}

	if err := s.svc.ResetPassword(c.Context(), req.Email, strings.TrimSpace(req.Otp), req.NewPassword); err != nil {
		return s.otpFailure(c, err)
	}
	return c.JSON(messageResponse{Message: "Password reset successfully"})
}

// debugAuth reports what the gateway would see in this request without
// loading the user.
func (s *Server) debugAuth(c fiber.Ctx) error {
	token, source := extractToken(c)
	res := debugAuthResponse{HasToken: token != "", Source: source}
	if token == "" {
		return c.JSON(res)
	}

	subject, err := s.gateway.Codec().ParseSubject(token)
	if err != nil {
		res.Failure = auth.FailureKind(err)
		return c.JSON(res)
	}
	res.Subject = subject
	res.Valid = true
	return c.JSON(res)
}

func (s *Server) otpFailure(c fiber.Ctx, err error) error {
	status := otpStatus(err)
	if status == fiber.StatusInternalServerError {
		s.requestLogger(c).Warn(c.Context(), "otp request failed", "path", c.Path(), "error", err)
	}
	return writeError(c, status, messageFor(err))
}

// setSessionCookie writes the jwt cookie, or expires it when d carries no
// token.
func (s *Server) setSessionCookie(c fiber.Ctx, d services.SessionDirective) {
	cookie := &fiber.Cookie{
		Name:     common.TokenCookieName,
		Value:    d.Token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if d.Token == "" || d.MaxAge <= 0 {
		cookie.Value = ""
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(d.MaxAge / time.Second)
	}
	c.Cookie(cookie)
}
