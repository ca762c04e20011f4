package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
)

var (
	errAnonymousSubject = fmt.Errorf("%w: anonymous subject", common.ErrInvalidToken)
	errSubjectMismatch  = fmt.Errorf("%w: subject mismatch", common.ErrInvalidToken)
)

// UserLoader looks up the record a token subject refers to.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Gateway turns a raw token into an Identity. It keeps no state between
// calls and is safe for concurrent use.
type Gateway struct {
	codec  *TokenCodec
	users  UserLoader
	routes PublicRoutes
}

// NewGateway returns a Gateway resolving tokens with codec against users.
// routes decides which paths skip resolution.
func NewGateway(codec *TokenCodec, users UserLoader, routes PublicRoutes) *Gateway {
	return &Gateway{codec: codec, users: users, routes: routes}
}

// IsPublic reports whether path skips identity resolution.
func (g *Gateway) IsPublic(path string) bool {
	return g.routes.IsPublic(path)
}

// Codec exposes the token codec for diagnostics.
func (g *Gateway) Codec() *TokenCodec {
	return g.codec
}

// Resolve verifies token and loads the user it names. Every failure comes
// back as an error; panics from collaborators become common.ErrUnexpected.
func (g *Gateway) Resolve(ctx context.Context, token string) (id Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id = Identity{}
			err = fmt.Errorf("%w: %v", common.ErrUnexpected, r)
		}
	}()

	subject, err := g.codec.ParseSubject(token)
	if err != nil {
		return Identity{}, err
	}

	if subject == "" || strings.EqualFold(subject, common.AnonymousPrincipal) {
		return Identity{}, errAnonymousSubject
	}

	user, err := g.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Identity{}, common.ErrUserNotFound
		}
		return Identity{}, fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}

	if !g.codec.Validate(token, user.Email) {
		return Identity{}, errSubjectMismatch
	}

	return Identity{
		Email:       user.Email,
		UserID:      user.UserID,
		Authorities: []string{},
	}, nil
}

const (
	KindTokenMalformed    = "token_malformed"
	KindTokenExpired      = "token_expired"
	KindTokenBadSignature = "token_bad_signature"
	KindUserNotFound      = "user_not_found"
	KindAnonymousSubject  = "anonymous_subject"
	KindSubjectMismatch   = "subject_mismatch"
	KindUnexpected        = "unexpected"
)

// FailureKind names the class of a Resolve error for logs.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return KindTokenExpired
	case errors.Is(err, common.ErrTokenBadSignature):
		return KindTokenBadSignature
	case errors.Is(err, common.ErrTokenMalformed):
		return KindTokenMalformed
	case errors.Is(err, common.ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, errAnonymousSubject):
		return KindAnonymousSubject
	case errors.Is(err, errSubjectMismatch):
		return KindSubjectMismatch
	default:
		return KindUnexpected
	}
}
