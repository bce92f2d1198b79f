package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pipeworks/taskmesh/internal/llm"
)

// EmailAnalysis processor assembles a canonical text view of an email,
// calls the LLM, and normalizes the response into a structured analysis,
// deriving source_category from the sender's domain against an allowlist
// of internal domains. Grounded on EmailAnalysisProcessor /
// OpenAIService.analyze_email in the original service.
type EmailAnalysis struct {
	LLM             llm.Provider
	InternalDomains map[string]bool
}

// NewEmailAnalysis builds an EmailAnalysis processor. internalDomains is
// the configured allowlist (§4.6) used to classify a sender as internal
// vs. external.
func NewEmailAnalysis(provider llm.Provider, internalDomains []string) *EmailAnalysis {
	domains := make(map[string]bool, len(internalDomains))
	for _, d := range internalDomains {
		domains[strings.ToLower(d)] = true
	}
	return &EmailAnalysis{LLM: provider, InternalDomains: domains}
}

func (e *EmailAnalysis) Process(ctx context.Context, payload map[string]interface{}, jobID, traceID, owner string) (map[string]interface{}, error) {
	text := canonicalEmailText(payload)

	raw, err := e.LLM.Complete(ctx, llm.AnalysisEmail, text)
	if err != nil {
		return nil, fmt.Errorf("email_analysis: llm call: %w", err)
	}

	var analysis map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("email_analysis: parse llm response: %w", err)
	}

	analysis["entities"] = normalizeEntities(analysis["entities"])
	analysis["action_items"] = normalizeActionItems(analysis["action_items"])
	analysis["source_category"] = e.sourceCategory(payload)
	analysis["job_id"] = jobID

	return analysis, nil
}

// canonicalEmailText renders subject/from/to/date/cc/body plus an
// attachment-name list into one text block for the LLM call, following the
// original's email-text assembly.
func canonicalEmailText(payload map[string]interface{}) string {
	var buf strings.Builder
	writeField := func(label, key string) {
		if v, ok := payload[key].(string); ok && v != "" {
			buf.WriteString(label)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\n")
		}
	}

	writeField("Subject", "subject")
	writeField("From", "from")
	writeField("To", "to")
	writeField("Date", "date")
	writeField("Cc", "cc")

	if body, ok := payload["body"].(string); ok {
		buf.WriteString("\n")
		buf.WriteString(body)
		buf.WriteString("\n")
	}

	if atts, ok := payload["attachments"].([]interface{}); ok && len(atts) > 0 {
		buf.WriteString("\nAttachments:\n")
		for _, a := range atts {
			if m, ok := a.(map[string]interface{}); ok {
				if name, ok := m["filename"].(string); ok {
					buf.WriteString("- ")
					buf.WriteString(name)
					buf.WriteString("\n")
				}
			}
		}
	}

	return buf.String()
}

func normalizeEntities(raw interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0)
	items, ok := raw.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, map[string]interface{}{
			"name": m["name"],
			"type": m["type"],
		})
	}
	return out
}

func normalizeActionItems(raw interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0)
	items, ok := raw.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		priority, _ := m["priority"].(string)
		if priority == "" {
			priority = "medium"
		}
		out = append(out, map[string]interface{}{
			"description": m["description"],
			"priority":    priority,
		})
	}
	return out
}

// sourceCategory classifies the sender's email address as "internal" if
// its domain is in the configured allowlist, "external" otherwise.
func (e *EmailAnalysis) sourceCategory(payload map[string]interface{}) string {
	from, _ := payload["from"].(string)
	domain := domainOf(from)
	if e.InternalDomains[strings.ToLower(domain)] {
		return "internal"
	}
	return "external"
}

func domainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at == -1 || at == len(address)-1 {
		return ""
	}
	return strings.TrimSuffix(address[at+1:], ">")
}
