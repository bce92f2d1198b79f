package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_SuccessOn2xx(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
		_ = r
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, true, 0, zerolog.Nop())
	err := n.SendNotification(context.Background(), map[string]interface{}{"job_id": "job-1"}, "job-1", "trace-1")
	require.NoError(t, err)
	_ = received
}

func TestWebhookNotifier_ErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, true, 0, zerolog.Nop())
	err := n.SendNotification(context.Background(), map[string]interface{}{}, "job-1", "trace-1")
	require.Error(t, err)
}

func TestWebhookNotifier_DisabledIsNoop(t *testing.T) {
	n := NewWebhookNotifier("", false, 0, zerolog.Nop())
	err := n.SendNotification(context.Background(), map[string]interface{}{}, "job-1", "trace-1")
	require.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 10))
	require.Equal(t, "ab", truncate("abcdef", 2))
}
