// Package model defines the data types shared across the job-processing
// platform: jobs, vector points, and API key records.
package model

import "time"

// Status is a job's position in the lifecycle state machine.
//
//	pending -> scheduled -> processing -> completed
//	                  \-> failed
//
// A janitor resets processing -> pending on lock expiry; no other backward
// transition is valid.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Type identifies which processor handles a job.
type Type string

const (
	TypeSubjectAnalysis Type = "subject_analysis"
	TypeEmailAnalysis   Type = "email_analysis"
	TypeEmbedding       Type = "embedding"
)

// Source identifies where a job's payload originated.
type Source string

const (
	SourceEmail      Source = "email"
	SourceSharePoint Source = "sharepoint"
	SourceAWSS3      Source = "aws_s3"
	SourceAzure      Source = "azure"
)

// Job is the canonical record stored by the Job Repository. Data carries
// the opaque request payload; Results carries the processor's output once
// Status reaches completed.
type Job struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	Source        Source                 `json:"source"`
	Owner         string                 `json:"owner"`
	Status        Status                 `json:"status"`
	Priority      int                    `json:"priority"`
	Data          map[string]interface{} `json:"data"`
	Results       map[string]interface{} `json:"results,omitempty"`
	Error         string                 `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	ExpiresAt     *time.Time             `json:"expires_at,omitempty"`
	LockExpiresAt *time.Time             `json:"lock_expires_at,omitempty"`
}

// DefaultPriority is used when a caller does not set one explicitly.
const DefaultPriority = 5

// MinPriority and MaxPriority bound the valid priority range (§3, Job).
const (
	MinPriority = 1
	MaxPriority = 10
)

// ClampPriority normalizes p into [MinPriority, MaxPriority], substituting
// DefaultPriority for values outside the valid range.
func ClampPriority(p int) int {
	if p < MinPriority || p > MaxPriority {
		return DefaultPriority
	}
	return p
}

// NormalizeOwner replaces characters illegal in backend namespaces (collection
// names, cache-key segments) with underscores. Centralized here per the
// multi-tenant naming design note: owner strings may contain '@' and '.'
// which are normalized in one place rather than at each call site.
func NormalizeOwner(owner string) string {
	out := make([]rune, 0, len(owner))
	for _, r := range owner {
		switch r {
		case '@', '.', '-', ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
