package auth

import (
	"encoding/json"
	"net/http"

	"github.com/pipeworks/taskmesh/internal/model"
)

// APIKeyHeader is the header carrying the caller's API key (§6).
const APIKeyHeader = "X-API-Key"

// ExtractAPIKey reads the API key from the X-API-Key header.
func ExtractAPIKey(r *http.Request) (string, error) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

func decodeAPIKeyRecord(raw string) (*model.APIKeyRecord, error) {
	var record model.APIKeyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}
