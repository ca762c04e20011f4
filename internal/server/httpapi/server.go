// Package httpapi exposes the account workflows over HTTP using fiber.
package httpapi

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/services"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Options carries the transport settings.
type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
}

// Server is the fiber application serving the account API.
type Server struct {
	app     *fiber.App
	svc     *services.AuthService
	gateway *auth.Gateway
	opts    Options
	logger  logging.Logger
}

// NewServer builds the app with its middleware chain and routes.
func NewServer(svc *services.AuthService, gateway *auth.Gateway, opts Options, logger logging.Logger) *Server {
	s := &Server{
		svc:     svc,
		gateway: gateway,
		opts:    opts,
		logger:  logger.With("module", "http"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "authmatrix",
		ErrorHandler: s.handleError,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	s.app.Use(recoverer.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowCredentials: withCredentials(opts.AllowedOrigins),
		AllowMethods:     []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions},
		AllowHeaders:     []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization},
	}))
	s.app.Use(s.authenticate)

	s.routes()
	return s
}

// withCredentials reports whether credentialed CORS can be enabled. The cors
// middleware refuses credentials with a wildcard or empty origin list.
func withCredentials(origins []string) bool {
	return len(origins) > 0 && !slices.Contains(origins, "*")
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/debug-auth", s.debugAuth)

	s.app.Post("/register", s.register)
	s.app.Post("/login", s.login)
	s.app.Get("/is-authenticated", s.isAuthenticated)
	s.app.Post("/logout", s.logout)
	s.app.Post("/send-reset-otp", s.sendResetOtp)
	s.app.Post("/reset-password", s.resetPassword)

	s.app.Get("/profile", requireIdentity, s.profile)
	s.app.Post("/send-otp", requireIdentity, s.sendOtp)
	s.app.Post("/verify-otp", requireIdentity, s.verifyOtp)
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until Shutdown is called.
func (s *Server) Run(addr string) error {
	s.logger.Info(context.Background(), "http server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError is the last stop for errors returned by handlers and panics
// caught by the recover middleware.
func (s *Server) handleError(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeError(c, fe.Code, fe.Message)
	}

	s.requestLogger(c).Error(c.Context(), "unhandled error", "error", err)
	return writeError(c, fiber.StatusInternalServerError, msgGeneric)
}

func (s *Server) requestLogger(c fiber.Ctx) logging.Logger {
	return s.logger.With("request_id", requestid.FromContext(c))
}

func (s *Server) accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.requestLogger(c).Debug(c.Context(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start),
	)
	return err
}
