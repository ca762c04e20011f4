package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/models"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/users"
)

type sentMail struct {
	kind  string
	email string
	value string
}

// fakeNotifier records every send. err fails all sends; block waits for ctx.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentMail
	err   error
	block bool
}

func (f *fakeNotifier) record(ctx context.Context, kind, email, value string) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, email: email, value: value})
	return nil
}

func (f *fakeNotifier) SendVerificationOtp(ctx context.Context, email, otp string) error {
	return f.record(ctx, "verify", email, otp)
}

func (f *fakeNotifier) SendResetOtp(ctx context.Context, email, otp string) error {
	return f.record(ctx, "reset", email, otp)
}

func (f *fakeNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return f.record(ctx, "welcome", email, name)
}

func (f *fakeNotifier) Sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

// fakeHasher is reversible on purpose so tests can read stored passwords.
type fakeHasher struct {
	err error
}

func (h fakeHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + p, nil
}

func (h fakeHasher) Verify(p, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, "hashed:") {
		return false, errors.New("bad hash")
	}
	return encoded == "hashed:"+p, nil
}

// brokenStore fails reads with err.
type brokenStore struct {
	users.CredentialStore
	err error
}

func (b brokenStore) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, b.err
}

func (b brokenStore) ExistsByEmail(context.Context, string) (bool, error) {
	return false, b.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// sequence hands out codes in order.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store    *users.MemoryStore
	notifier *fakeNotifier
	clock    *clock
	otp      *OtpChallenge
	svc      *AuthService
	codec    *auth.TokenCodec
}

func newHarness(codes ...string) *harness {
	if len(codes) == 0 {
		codes = []string{"123456"}
	}
	h := &harness{
		store:    users.NewMemoryStore(),
		notifier: &fakeNotifier{},
		clock:    &clock{now: t0},
	}
	h.otp = NewOtpChallenge(h.store, h.notifier, fakeHasher{}, OtpOptions{
		VerifyTTL:     24 * time.Hour,
		ResetTTL:      15 * time.Minute,
		NotifyTimeout: time.Second,
	}, logging.Nop{}).WithClock(h.clock.Now).WithGenerator(sequence(codes...))
	h.codec = auth.NewTokenCodec([]byte("services-test-secret"), 24*time.Hour).WithClock(h.clock.Now)
	h.svc = NewAuthService(h.store, h.codec, fakeHasher{}, h.otp, h.notifier, time.Second, logging.Nop{})
	return h
}

func (h *harness) seed(email string, verified bool) {
	_ = h.store.Create(context.Background(), &models.User{
		UserID:            "uid-" + email,
		Email:             email,
		Name:              "Alice",
		PasswordHash:      "hashed:pw1",
		IsAccountVerified: verified,
	})
}

func (h *harness) user(email string) *models.User {
	u, err := h.store.GetByEmail(context.Background(), email)
	if err != nil {
		panic(err)
	}
	return u
}
