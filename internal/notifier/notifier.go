// Package notifier implements the Notifier variants described in §4.8:
// webhook, email, and SMS, sharing the uniform SendNotification signature
// of the original service's Notifier interface
// (app/worker/interfaces.py, app/worker/notifier.py).
package notifier

import (
	"context"
)

// Notifier delivers a completed job's results out-of-band. Implementations
// never retry internally (§4.8): a delivery failure is logged and may be
// returned as an error, but it does not change the job's completed status.
type Notifier interface {
	SendNotification(ctx context.Context, data map[string]interface{}, jobID, traceID string) error
}
