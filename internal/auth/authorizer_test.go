package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pipeworks/taskmesh/internal/model"
)

type fakeKeyStore struct {
	values map[string]string
}

func (f *fakeKeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func seedKey(t *testing.T, store *fakeKeyStore, key string, record model.APIKeyRecord) {
	t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	store.values["api_keys:"+key] = string(raw)
}

func TestCacheAuthorizer_ValidKey(t *testing.T) {
	store := &fakeKeyStore{values: map[string]string{}}
	seedKey(t, store, "key-1", model.APIKeyRecord{ClientID: "acme", Tier: model.TierPro, ExpiresAt: time.Now().Add(time.Hour)})

	a := NewCacheAuthorizer(store)
	record, err := a.Authorize(context.Background(), "key-1")
	require.NoError(t, err)
	require.Equal(t, "acme", record.ClientID)
	require.Equal(t, model.TierPro, record.Tier)
}

func TestCacheAuthorizer_MissingKeyErrors(t *testing.T) {
	store := &fakeKeyStore{values: map[string]string{}}
	a := NewCacheAuthorizer(store)
	_, err := a.Authorize(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCacheAuthorizer_UnknownKeyErrors(t *testing.T) {
	store := &fakeKeyStore{values: map[string]string{}}
	a := NewCacheAuthorizer(store)
	_, err := a.Authorize(context.Background(), "nope")
	require.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestCacheAuthorizer_ExpiredKeyErrors(t *testing.T) {
	store := &fakeKeyStore{values: map[string]string{}}
	seedKey(t, store, "key-1", model.APIKeyRecord{ClientID: "acme", Tier: model.TierFree, ExpiresAt: time.Now().Add(-time.Hour)})

	a := NewCacheAuthorizer(store)
	_, err := a.Authorize(context.Background(), "key-1")
	require.ErrorIs(t, err, ErrKeyExpired)
}

func TestExtractAPIKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "abc123")

	key, err := ExtractAPIKey(req)
	require.NoError(t, err)
	require.Equal(t, "abc123", key)
}

func TestExtractAPIKey_MissingHeaderErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractAPIKey(req)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
