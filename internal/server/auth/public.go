package auth

import "strings"

// RouteMatcher decides whether a raw request path matches one public entry.
type RouteMatcher interface {
	Match(path string) bool
}

// ExactPath matches one path exactly.
type ExactPath string

func (p ExactPath) Match(path string) bool { return path == string(p) }

// PathPrefix matches any path starting with the prefix. "/login" also
// matches "/loginhistory"; that is intended.
type PathPrefix string

func (p PathPrefix) Match(path string) bool { return strings.HasPrefix(path, string(p)) }

// ExtSuffix matches paths ending in ".<ext>".
type ExtSuffix string

func (e ExtSuffix) Match(path string) bool {
	ext := "." + string(e)
	return len(path) > len(ext) && strings.HasSuffix(path, ext)
}

// PublicRoutes is an ordered allow-list. A path is public when any matcher
// accepts it.
type PublicRoutes []RouteMatcher

// IsPublic reports whether any matcher accepts path.
func (r PublicRoutes) IsPublic(path string) bool {
	for _, m := range r {
		if m.Match(path) {
			return true
		}
	}
	return false
}

// DefaultPublicRoutes lists the paths reachable without a token.
var DefaultPublicRoutes = PublicRoutes{
	ExactPath("/"),
	PathPrefix("/index.html"),
	PathPrefix("/favicon.ico"),
	PathPrefix("/favicon.png"),
	PathPrefix("/assets/"),
	PathPrefix("/manifest.json"),
	PathPrefix("/logo192.png"),
	PathPrefix("/logo512.png"),
	PathPrefix("/register"),
	PathPrefix("/login"),
	PathPrefix("/is-authenticated"),
	PathPrefix("/send-reset-otp"),
	PathPrefix("/reset-password"),
	PathPrefix("/logout"),
	PathPrefix("/debug-auth"),
	PathPrefix("/health"),
	ExtSuffix("js"),
	ExtSuffix("css"),
	ExtSuffix("png"),
	ExtSuffix("svg"),
	ExtSuffix("woff2"),
	ExtSuffix("ttf"),
}
