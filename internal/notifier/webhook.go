package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/metrics"
)

// DefaultWebhookTimeout matches §6's configuration surface
// (webhook.timeout) default.
const DefaultWebhookTimeout = 10 * time.Second

// truncateLen bounds logged request/response bodies (§4.8: "truncated body
// (<=1000 chars)").
const truncateLen = 1000

// WebhookNotifier POSTs job results as JSON to a configured URL. It never
// retries: a non-2xx response or transport error is logged and returned to
// the caller for visibility, but the job itself stays completed.
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	enabled bool
	log     zerolog.Logger
}

// NewWebhookNotifier builds a WebhookNotifier. enabled mirrors
// webhook.enabled; when false, SendNotification is a logged no-op.
func NewWebhookNotifier(url string, enabled bool, timeout time.Duration, log zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &WebhookNotifier{client: client, url: url, enabled: enabled, log: log}
}

// SendNotification POSTs data to the configured webhook URL, logging the
// request and response per §4.8.
func (n *WebhookNotifier) SendNotification(ctx context.Context, data map[string]interface{}, jobID, traceID string) error {
	if !n.enabled || n.url == "" {
		metrics.WebhookNotificationsTotal.WithLabelValues("disabled").Inc()
		n.log.Info().Str("job_id", jobID).Str("trace_id", traceID).Msg("webhook not enabled, skipping notification")
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("notifier: marshal webhook body: %w", err)
	}
	n.log.Info().
		Str("job_id", jobID).
		Str("trace_id", traceID).
		Str("url", n.url).
		Str("body", truncate(string(body), truncateLen)).
		Msg("sending webhook notification")

	start := time.Now()
	resp, err := n.client.R().SetContext(ctx).SetBody(body).Post(n.url)
	metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WebhookNotificationsTotal.WithLabelValues("failure").Inc()
		n.log.Error().Err(err).Str("job_id", jobID).Str("trace_id", traceID).Msg("webhook request failed")
		return fmt.Errorf("notifier: webhook request: %w", err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		metrics.WebhookNotificationsTotal.WithLabelValues("success").Inc()
		n.log.Info().
			Str("job_id", jobID).
			Str("trace_id", traceID).
			Int("status", status).
			Msg("webhook notification sent successfully")
		return nil
	}

	metrics.WebhookNotificationsTotal.WithLabelValues("failure").Inc()
	n.log.Error().
		Str("job_id", jobID).
		Str("trace_id", traceID).
		Int("status", status).
		Interface("headers", resp.Header()).
		Str("response", truncate(string(resp.Body()), truncateLen)).
		Msg("webhook notification failed")
	return fmt.Errorf("notifier: webhook returned status %d", status)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
