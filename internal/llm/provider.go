// Package llm implements the LLM provider abstraction used by the
// subject-analysis and email-analysis processors (§4.6), plus the prompt
// text and response normalization those processors depend on.
package llm

import "context"

// AnalysisType selects which system prompt and response shape a Complete
// call expects.
type AnalysisType string

const (
	AnalysisSubject    AnalysisType = "subject_analysis"
	AnalysisEmail      AnalysisType = "email_analysis"
	AnalysisAttachment AnalysisType = "attachment_analysis"
)

// Provider completes a chat-style prompt and returns the raw JSON text of
// the model's response (the caller unmarshals into the shape it expects).
type Provider interface {
	Complete(ctx context.Context, analysisType AnalysisType, userContent string) (string, error)
}
