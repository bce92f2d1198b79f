package apihttp

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/pipeworks/taskmesh/internal/auth"
	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/cache"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/storage/kv"
)

type seqIDs struct{ n int }

func (s *seqIDs) NextString() string {
	s.n++
	return "id-" + string(rune('a'+s.n))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := kv.New(client)
	b := broker.New(client)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(cache.DDLSQLite)
	require.NoError(t, err)

	c := cache.New(cache.NewRedisTier(client), cache.NewSQLTier(db, cache.DialectSQLite))

	const apiKey = "test-key"
	rec := model.APIKeyRecord{
		ClientID:  "client-1",
		Tier:      model.TierFree,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "api_keys:"+apiKey, string(raw), model.APIKeyTTL))

	cfg := config.NewForTesting()

	srv := &Server{
		Repo:        repo,
		Broker:      b,
		Authorizer:  auth.NewCacheAuthorizer(c),
		RateLimiter: auth.NewRateLimiter(c),
		IDs:         &seqIDs{},
		Config:      cfg,
		Log:         zerolog.Nop(),
	}
	return srv, apiKey
}

func TestHandleAnalyze_CreatesJobAndEnqueues(t *testing.T) {
	srv, apiKey := newTestServer(t)
	router := srv.Router()

	body := bytes.NewBufferString(`{"subject":"hi","from":"a@b.com","body":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("X-API-Key", apiKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["job_id"])
	require.Equal(t, "pending", resp["status"])
	require.Contains(t, resp["status_url"], "/api/v1/status/")
}

func TestHandleAnalyze_MissingAPIKeyUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleAnalyzeSubjects_RequiresSubjectsField(t *testing.T) {
	srv, apiKey := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/subjects", bytes.NewBufferString(`{}`))
	req.Header.Set("X-API-Key", apiKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatus_RoundTripAfterAnalyze(t *testing.T) {
	srv, apiKey := newTestServer(t)
	router := srv.Router()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/subjects", bytes.NewBufferString(`{"subjects":["a","b"]}`))
	createReq.Header.Set("X-API-Key", apiKey)
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)
	require.Equal(t, http.StatusAccepted, createW.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))
	jobID := created["job_id"].(string)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+jobID, nil)
	statusReq.Header.Set("X-API-Key", apiKey)
	statusW := httptest.NewRecorder()
	router.ServeHTTP(statusW, statusReq)

	require.Equal(t, http.StatusOK, statusW.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(statusW.Body.Bytes(), &status))
	require.Equal(t, jobID, status["job_id"])
	require.Equal(t, "pending", status["status"])
}

func TestHandleStatus_UnknownJobNotFound(t *testing.T) {
	srv, apiKey := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/does-not-exist", nil)
	req.Header.Set("X-API-Key", apiKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleResults_PendingJobReturnsStatusEnvelope(t *testing.T) {
	srv, apiKey := newTestServer(t)
	router := srv.Router()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{"subject":"x"}`))
	createReq.Header.Set("X-API-Key", apiKey)
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))
	jobID := created["job_id"].(string)

	resultsReq := httptest.NewRequest(http.MethodGet, "/api/v1/results/"+jobID, nil)
	resultsReq.Header.Set("X-API-Key", apiKey)
	resultsW := httptest.NewRecorder()
	router.ServeHTTP(resultsW, resultsReq)

	require.Equal(t, http.StatusOK, resultsW.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(resultsW.Body.Bytes(), &resp))
	require.Equal(t, "pending", resp["status"])
}

func TestHandleHealth_OK(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealthDetailed_ReportsComponents(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/detailed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
}

func TestRateLimitMiddleware_BlocksOverTierLimit(t *testing.T) {
	srv, apiKey := newTestServer(t)
	srv.Config.RateLimits = map[string]config.TierLimits{
		"free": {RequestsPerMinute: 1, MaxConcurrent: 1},
	}
	router := srv.Router()

	get := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status/whatever", nil)
		req.Header.Set("X-API-Key", apiKey)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusNotFound, get())
	require.Equal(t, http.StatusTooManyRequests, get())
}
