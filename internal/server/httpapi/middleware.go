package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/gofiber/fiber/v3"
)

const (
	sourceHeader = "header"
	sourceCookie = "cookie"
)

// extractToken prefers the Authorization header and falls back to the jwt
// cookie. It returns "" when neither carries a token.
func extractToken(c fiber.Ctx) (token, source string) {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, common.BearerPrefix) {
		return h[len(common.BearerPrefix):], sourceHeader
	}
	if v := c.Cookies(common.TokenCookieName); v != "" {
		return v, sourceCookie
	}
	return "", ""
}

// authenticate attaches the caller's identity to the request context when a
// protected path carries a valid token. It never rejects a request;
// requireIdentity does that on the routes that need it.
func (s *Server) authenticate(c fiber.Ctx) error {
	if s.gateway.IsPublic(c.Path()) {
		return c.Next()
	}

	if id, ok := s.resolve(c); ok {
		c.SetContext(auth.WithIdentity(c.Context(), id))
	}
	return c.Next()
}

// resolve runs the gateway over the request's token and logs why it failed.
func (s *Server) resolve(c fiber.Ctx) (auth.Identity, bool) {
	log := s.requestLogger(c)

	token, source := extractToken(c)
	if token == "" {
		log.Debug(c.Context(), "no token presented", "path", c.Path())
		return auth.Identity{}, false
	}

	id, err := s.gateway.Resolve(c.Context(), token)
	if err != nil {
		kind := auth.FailureKind(err)
		if kind == auth.KindUnexpected {
			log.Error(c.Context(), "token processing failed", "path", c.Path(), "source", source, "kind", kind, "error", err)
		} else {
			log.Warn(c.Context(), "token rejected", "path", c.Path(), "source", source, "kind", kind, "error", err)
		}
		return auth.Identity{}, false
	}

	log.Debug(c.Context(), "token accepted", "email", id.Email, "source", source)
	return id, true
}

func requireIdentity(c fiber.Ctx) error {
	if _, ok := auth.IdentityFromContext(c.Context()); !ok {
		return writeError(c, fiber.StatusUnauthorized, messageFor(common.ErrNotAuthenticated))
	}
	return c.Next()
}
