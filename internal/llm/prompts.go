package llm

import "regexp"

// systemPrompts carries the fixed system prompt per analysis type,
// transcribed from the original service's per-analysis-type prompt
// construction. Subject analysis is capped to 100 subjects by the caller
// (processor.SubjectAnalysis), not by the prompt itself.
var systemPrompts = map[AnalysisType]string{
	AnalysisSubject: `You are an AI assistant that analyzes email subject lines. Your task is to categorize each subject line and identify its business context.

For each subject line, provide the following information:
- tag: the business category (choose one from: timesheet, approval, staffing, sow, finance-review, general)
- cluster: a high-level grouping or topic (e.g., month, client, project, system name) - avoid personal names or email addresses
- subject: the original subject line

Return your analysis as a valid JSON object with a "results" array, one entry per subject line, each with tag/cluster/subject fields.`,

	AnalysisEmail: `You are an AI assistant that analyzes emails. Your task is to extract key information from the email and provide a structured analysis.

Analyze the email and provide the following information in JSON format:
- summary: a concise summary of the email (1-2 sentences)
- sentiment: positive, negative, or neutral
- topics: a list of main topics discussed (3-5 topics)
- action_items: a list of {description, priority} objects, priority defaulting to "medium"
- entities: a list of {name, type} objects
- intent: the primary intent (information_sharing, request, follow_up, etc.)
- importance_score: a score from 0 to 1
- sensitivity_level: Public, Normal, Confidential, or Highly Confidential
- response_required: boolean
- reference_required: boolean, whether this should be saved to the knowledge base
- departments: a list of departments that should handle this email
- agent_role: the role that should handle this email, or Admin if not applicable

Return your analysis as a valid JSON object.`,

	AnalysisAttachment: `You are an AI assistant that analyzes document content. Your task is to extract key information from the document and provide a structured analysis.

Analyze the document and provide the following information in JSON format:
- content_summary: a concise summary of the document content (2-3 sentences)
- sentiment: positive, negative, or neutral
- topics: a list of main topics discussed (3-5 topics)
- entities: a list of {name, type} objects

Return your analysis as a valid JSON object.`,
}

const defaultPrompt = `You are an AI assistant that analyzes text. Your task is to extract key information from the text and provide a structured analysis.

Analyze the text and provide the following information in JSON format:
- summary: a concise summary of the text (1-2 sentences)
- sentiment: positive, negative, or neutral
- topics: a list of main topics discussed (3-5 topics)

Return your analysis as a valid JSON object.`

// SystemPrompt returns the fixed system prompt for analysisType, falling
// back to a generic text-analysis prompt for anything unrecognized.
func SystemPrompt(analysisType AnalysisType) string {
	if p, ok := systemPrompts[analysisType]; ok {
		return p
	}
	return defaultPrompt
}

var (
	systemRolePattern = regexp.MustCompile(`(?m)^system:`)
	rolePattern       = regexp.MustCompile(`(?m)^(user|assistant|system):`)
	codeBlockPattern  = regexp.MustCompile("(?s)```.*?```")
)

// SanitizePrompt strips constructs a malicious caller could use to smuggle
// role/system instruction overrides into a user-supplied prompt, following
// the original service's sanitize_prompt.
func SanitizePrompt(prompt string) string {
	out := systemRolePattern.ReplaceAllString(prompt, "")
	out = rolePattern.ReplaceAllString(out, "")
	out = codeBlockPattern.ReplaceAllString(out, "")
	return out
}
