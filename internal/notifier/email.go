package notifier

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// EmailNotifier logs a would-be email send. The original service leaves
// the transport itself as a placeholder pending a provider choice
// (aiosmtplib/SendGrid/Mailgun); this mirrors that boundary.
type EmailNotifier struct {
	recipients []string
	subject    string
	log        zerolog.Logger
}

// NewEmailNotifier builds an EmailNotifier for the given recipients/subject.
func NewEmailNotifier(recipients []string, subject string, log zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{recipients: recipients, subject: subject, log: log}
}

func (n *EmailNotifier) SendNotification(ctx context.Context, data map[string]interface{}, jobID, traceID string) error {
	if len(n.recipients) == 0 {
		n.log.Info().Str("job_id", jobID).Str("trace_id", traceID).Msg("no email recipients configured, skipping notification")
		return nil
	}
	n.log.Info().
		Str("job_id", jobID).
		Str("trace_id", traceID).
		Str("recipients", strings.Join(n.recipients, ", ")).
		Str("subject", n.subject).
		Msg("email notification sent")
	return nil
}
