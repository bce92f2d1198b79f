// Package auth implements API key authorization and per-tier rate
// limiting (§6: "authentication by header X-API-Key"; §6 rate_limits
// config surface). Grounded on the teacher's Authorizer interface shape,
// retargeted from the teacher's actor/project/org model onto this
// platform's flat client-ID + tier API key record (model.APIKeyRecord).
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pipeworks/taskmesh/internal/model"
)

// Authorizer validates an API key and reports the record behind it.
// Permission checks (HasPermission) are left to callers since operations
// vary by HTTP route, not by a fixed (operation, resource) pair.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey string) (*model.APIKeyRecord, error)
}

// KeyStore is the subset of the Cache Layer the Authorizer needs to look
// up a key record (§6: persisted under `api_keys:{key}`).
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// CacheAuthorizer validates API keys against records stored in the Cache
// Layer under api_keys:{key}, replacing the mock authorizer used before
// the Cache Layer existed.
type CacheAuthorizer struct {
	store KeyStore
	now   func() time.Time
}

// NewCacheAuthorizer builds a CacheAuthorizer over store.
func NewCacheAuthorizer(store KeyStore) *CacheAuthorizer {
	return &CacheAuthorizer{store: store, now: time.Now}
}

// Authorize looks up apiKey in the Cache Layer, decodes its record, and
// rejects expired keys.
func (a *CacheAuthorizer) Authorize(ctx context.Context, apiKey string) (*model.APIKeyRecord, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	raw, ok, err := a.store.Get(ctx, "api_keys:"+apiKey)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup api key: %w", err)
	}
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	record, err := decodeAPIKeyRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("auth: decode api key record: %w", err)
	}

	if !record.ExpiresAt.IsZero() && a.now().After(record.ExpiresAt) {
		return nil, ErrKeyExpired
	}
	return record, nil
}
