package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/common"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	users map[string]*models.User
	err   error
	panic bool
	calls int
}

func (f *fakeLoader) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func newTestGateway(t *testing.T, loader UserLoader) (*Gateway, *TokenCodec) {
	t.Helper()
	codec := NewTokenCodec([]byte("gateway-secret"), time.Hour)
	return NewGateway(codec, loader, DefaultPublicRoutes), codec
}

func alice() *models.User {
	return &models.User{UserID: "uid-alice", Email: "alice@example.com", Name: "Alice"}
}

func TestGateway_Resolve_Success(t *testing.T) {
	loader := &fakeLoader{users: map[string]*models.User{"alice@example.com": alice()}}
	g, codec := newTestGateway(t, loader)

	tok, err := codec.Issue("alice@example.com")
	require.NoError(t, err)

	id, err := g.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, "uid-alice", id.UserID)
	assert.Empty(t, id.Authorities)
}

func TestGateway_Resolve_Failures(t *testing.T) {
	other := NewTokenCodec([]byte("other-secret"), time.Hour)
	expired := NewTokenCodec([]byte("gateway-secret"), -time.Minute)

	tests := []struct {
		name     string
		token    func(c *TokenCodec) string
		loader   *fakeLoader
		wantErr  error
		wantKind string
	}{
		{
			name:     "malformed",
			token:    func(*TokenCodec) string { return "abc" },
			wantErr:  common.ErrTokenMalformed,
			wantKind: KindTokenMalformed,
		},
		{
			name:     "expired",
			token:    func(*TokenCodec) string { s, _ := expired.Issue("alice@example.com"); return s },
			wantErr:  common.ErrTokenExpired,
			wantKind: KindTokenExpired,
		},
		{
			name:     "bad signature",
			token:    func(*TokenCodec) string { s, _ := other.Issue("alice@example.com"); return s },
			wantErr:  common.ErrTokenBadSignature,
			wantKind: KindTokenBadSignature,
		},
		{
			name:     "anonymous sentinel any case",
			token:    func(c *TokenCodec) string { s, _ := c.Issue("AnonymousUSER"); return s },
			wantErr:  common.ErrInvalidToken,
			wantKind: KindAnonymousSubject,
		},
		{
			name:     "empty subject",
			token:    func(c *TokenCodec) string { s, _ := c.Issue(""); return s },
			wantErr:  common.ErrInvalidToken,
			wantKind: KindAnonymousSubject,
		},
		{
			name:     "unknown user",
			token:    func(c *TokenCodec) string { s, _ := c.Issue("ghost@example.com"); return s },
			wantErr:  common.ErrUserNotFound,
			wantKind: KindUserNotFound,
		},
		{
			name:     "store failure",
			token:    func(c *TokenCodec) string { s, _ := c.Issue("alice@example.com"); return s },
			loader:   &fakeLoader{err: errors.New("db down")},
			wantErr:  common.ErrUnexpected,
			wantKind: KindUnexpected,
		},
		{
			name:     "store returns a different user",
			token:    func(c *TokenCodec) string { s, _ := c.Issue("alice@example.com"); return s },
			loader:   &fakeLoader{users: map[string]*models.User{"alice@example.com": {Email: "mallory@example.com"}}},
			wantErr:  common.ErrInvalidToken,
			wantKind: KindSubjectMismatch,
		},
		{
			name:     "panic in loader",
			token:    func(c *TokenCodec) string { s, _ := c.Issue("alice@example.com"); return s },
			loader:   &fakeLoader{panic: true},
			wantErr:  common.ErrUnexpected,
			wantKind: KindUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := tt.loader
			if loader == nil {
				loader = &fakeLoader{users: map[string]*models.User{"alice@example.com": alice()}}
			}
			g, codec := newTestGateway(t, loader)

			_, err := g.Resolve(context.Background(), tt.token(codec))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, FailureKind(err))

			id, err := g.Resolve(context.Background(), tt.token(codec))
			assert.Error(t, err)
			assert.Equal(t, Identity{}, id)
		})
	}
}

func TestGateway_TokenFailuresSkipStore(t *testing.T) {
	loader := &fakeLoader{}
	g, _ := newTestGateway(t, loader)

	_, err := g.Resolve(context.Background(), "not-a-token")
	assert.Error(t, err)
	assert.Zero(t, loader.calls)
}

func TestGateway_IsPublic(t *testing.T) {
	g, _ := newTestGateway(t, &fakeLoader{})
	assert.True(t, g.IsPublic("/assets/app.js"))
	assert.False(t, g.IsPublic("/profile"))
}
