package notifier

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// SMSNotifier logs a would-be SMS send, mirroring the original service's
// placeholder SMS transport.
type SMSNotifier struct {
	phoneNumbers []string
	log          zerolog.Logger
}

// NewSMSNotifier builds an SMSNotifier for the given phone numbers.
func NewSMSNotifier(phoneNumbers []string, log zerolog.Logger) *SMSNotifier {
	return &SMSNotifier{phoneNumbers: phoneNumbers, log: log}
}

func (n *SMSNotifier) SendNotification(ctx context.Context, data map[string]interface{}, jobID, traceID string) error {
	if len(n.phoneNumbers) == 0 {
		n.log.Info().Str("job_id", jobID).Str("trace_id", traceID).Msg("no SMS recipients configured, skipping notification")
		return nil
	}
	n.log.Info().
		Str("job_id", jobID).
		Str("trace_id", traceID).
		Str("recipients", strings.Join(n.phoneNumbers, ", ")).
		Msg("SMS notification sent")
	return nil
}
