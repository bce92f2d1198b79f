package auth

import "errors"

var (
	// ErrMissingAPIKey is returned when the X-API-Key header is absent.
	ErrMissingAPIKey = errors.New("auth: missing X-API-Key header")

	// ErrInvalidAPIKey is returned when the key has no matching record in
	// the Cache Layer.
	ErrInvalidAPIKey = errors.New("auth: invalid api key")

	// ErrKeyExpired is returned when the key's record has passed its
	// expires_at.
	ErrKeyExpired = errors.New("auth: api key expired")

	// ErrPermissionDenied is returned when a valid key lacks the
	// permission an operation requires.
	ErrPermissionDenied = errors.New("auth: permission denied")

	// ErrRateLimited is returned when a client has exceeded its tier's
	// requests-per-minute allowance.
	ErrRateLimited = errors.New("auth: rate limit exceeded")
)
