// Package common contains shared constants and sentinel errors used across
// AuthMatrix components.
package common

// TokenCookieName is the cookie that carries the bearer token between the
// browser and the server.
const TokenCookieName = "jwt"

// BearerPrefix prefixes the token in the Authorization header.
const BearerPrefix = "Bearer "

// AnonymousPrincipal is the principal name some clients put into tokens for
// unauthenticated callers. Tokens naming it never resolve to an identity.
const AnonymousPrincipal = "anonymousUser"
