// Package server wires the AuthMatrix components together and runs the HTTP
// API until the process is told to stop.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/config"
	"github.com/dmitrijs2005/authmatrix/internal/server/httpapi"
	"github.com/dmitrijs2005/authmatrix/internal/server/notify"
	"github.com/dmitrijs2005/authmatrix/internal/server/passwords"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authmatrix/internal/server/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	service    *services.AuthService
	http       *httpapi.Server
	closeStore func() error
}

// NewApp opens the credential store and builds the service graph. The caller
// owns the returned App and must call Run to release it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, closeStore, err := repomanager.OpenStore(ctx, c.StoreDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	notifier := newNotifier(c, logger)
	hasher := passwords.NewArgon2()
	codec := auth.NewTokenCodec([]byte(c.SecretKey), c.TokenValidity)

	otp := services.NewOtpChallenge(store, notifier, hasher, services.OtpOptions{
		VerifyTTL:     c.VerifyOtpValidity,
		ResetTTL:      c.ResetOtpValidity,
		NotifyTimeout: c.NotifyTimeout,
	}, logger)
	svc := services.NewAuthService(store, codec, hasher, otp, notifier, c.NotifyTimeout, logger)

	gateway := auth.NewGateway(codec, store, auth.DefaultPublicRoutes)
	srv := httpapi.NewServer(svc, gateway, httpapi.Options{
		AllowedOrigins: c.AllowedOrigins,
		CookieSecure:   c.CookieSecure,
	}, logger)

	return &App{
		config:     c,
		logger:     logger,
		service:    svc,
		http:       srv,
		closeStore: closeStore,
	}, nil
}

// newNotifier picks SMTP when a relay is configured and falls back to
// logging the messages.
func newNotifier(c *config.Config, logger logging.Logger) notify.Notifier {
	if c.SMTPHost == "" {
		logger.Warn(context.Background(), "no SMTP host configured, mail will only be logged")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM/SIGQUIT arrives,
// then drains in-flight requests and background mail before closing the
// store.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.http.Run(app.config.HTTPAddr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(ctx, "shutting down")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := app.http.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()

	app.service.Wait()
	if cerr := app.closeStore(); cerr != nil {
		app.logger.Error(ctx, "close store", "error", cerr)
	}

	return err
}
