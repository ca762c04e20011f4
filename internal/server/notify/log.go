package notify

import (
	"context"

	"github.com/dmitrijs2005/authmatrix/internal/logging"
)

// LogNotifier writes messages to the log instead of sending them. Meant for
// local development where no relay is configured; codes end up in the log.
type LogNotifier struct {
	logger logging.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) SendVerificationOtp(ctx context.Context, email, otp string) error {
	return n.log(ctx, VerificationMessage(email, otp))
}

func (n *LogNotifier) SendResetOtp(ctx context.Context, email, otp string) error {
	return n.log(ctx, ResetMessage(email, otp))
}

func (n *LogNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return n.log(ctx, WelcomeMessage(email, name))
}

func (n *LogNotifier) log(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info(ctx, "mail", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}
