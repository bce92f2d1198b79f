package model

import "errors"

// Sentinel errors shared across the Job Repository, Cache Layer, and HTTP
// surface. Callers compare with errors.Is; wrapping layers use fmt.Errorf's
// %w.
var (
	// ErrNotFound indicates a job, key, or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClaimed indicates a claim attempt lost the compare-and-set
	// race: the job was not in the expected pending/scheduled state.
	ErrAlreadyClaimed = errors.New("job already claimed")

	// ErrNotImplemented marks a backend operation intentionally unsupported
	// by a given Job Repository variant.
	ErrNotImplemented = errors.New("not implemented")

	// ErrValidation indicates a malformed payload, unsupported MIME type, or
	// oversized blob, surfaced at ingress or during extraction.
	ErrValidation = errors.New("validation error")

	// ErrRateLimited indicates the per-minute or monthly cap was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates an invalid or expired API key, or a
	// cross-tenant access attempt.
	ErrUnauthorized = errors.New("unauthorized")
)
