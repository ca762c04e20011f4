// Command authctl is the operator tool for an AuthMatrix deployment. It reads
// the same configuration as the server.
//
// Usage:
//
//	authctl register [server flags]
//	authctl token -email alice@example.com [server flags]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/cli"
	"github.com/dmitrijs2005/authmatrix/internal/flagx"
	"github.com/dmitrijs2005/authmatrix/internal/logging"
	"github.com/dmitrijs2005/authmatrix/internal/server/auth"
	"github.com/dmitrijs2005/authmatrix/internal/server/config"
	"github.com/dmitrijs2005/authmatrix/internal/server/notify"
	"github.com/dmitrijs2005/authmatrix/internal/server/passwords"
	"github.com/dmitrijs2005/authmatrix/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authmatrix/internal/server/services"
)

// newPassword is a test seam for the hidden double prompt.
var newPassword = cli.GetNewPassword

var errUsage = errors.New("usage: authctl register | authctl token -email <email>")

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, "text")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(context.Background(), cfg, logger, os.Args[1:], bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, args []string, in *bufio.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "register":
		return register(ctx, cfg, logger, in, out)
	case "token":
		return token(cfg, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func register(ctx context.Context, cfg *config.Config, logger logging.Logger, in *bufio.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	email, err := cli.GetRequiredText(in, "Email", out)
	if err != nil {
		return err
	}
	name, err := cli.GetRequiredText(in, "Name", out)
	if err != nil {
		return err
	}
	pw, err := newPassword(out)
	if err != nil {
		return err
	}
	defer cli.Wipe(pw)

	store, closeStore, err := repomanager.OpenStore(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	// mail from the operator tool only goes to the log
	notifier := notify.NewLogNotifier(logger)
	hasher := passwords.NewArgon2()
	codec := auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.TokenValidity)
	otp := services.NewOtpChallenge(store, notifier, hasher, services.OtpOptions{
		VerifyTTL:     cfg.VerifyOtpValidity,
		ResetTTL:      cfg.ResetOtpValidity,
		NotifyTimeout: cfg.NotifyTimeout,
	}, logger)
	svc := services.NewAuthService(store, codec, hasher, otp, notifier, cfg.NotifyTimeout, logger)
	defer svc.Wait()

	profile, err := svc.Register(ctx, email, name, string(pw))
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	fmt.Fprintf(out, "registered %s (%s)\n", profile.Email, profile.UserID)
	return nil
}

func token(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "token subject")
	ttl := fs.Duration("ttl", cfg.TokenValidity, "token lifetime")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "--email", "-ttl", "--ttl"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *email == "" {
		return errUsage
	}
	if *ttl <= 0 {
		*ttl = time.Minute
	}

	t, err := auth.NewTokenCodec([]byte(cfg.SecretKey), *ttl).Issue(*email)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(out, t)
	return nil
}
