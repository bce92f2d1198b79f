package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pipeworks/taskmesh/internal/llm"
)

// MaxSubjects bounds how many subject lines are sent to the LLM in one
// call (§4.6: "capped at 100").
const MaxSubjects = 100

// SubjectAnalysis processor calls the LLM with a fixed system prompt and a
// list of subject lines, returning {results:[{tag,cluster,subject}],
// job_id}. Grounded on SubjectAnalysisProcessor /
// OpenAIService.analyze_subjects in the original service.
type SubjectAnalysis struct {
	LLM llm.Provider
}

func NewSubjectAnalysis(provider llm.Provider) *SubjectAnalysis {
	return &SubjectAnalysis{LLM: provider}
}

func (s *SubjectAnalysis) Process(ctx context.Context, payload map[string]interface{}, jobID, traceID, owner string) (map[string]interface{}, error) {
	rawSubjects, _ := payload["subjects"].([]interface{})
	if len(rawSubjects) == 0 {
		return nil, fmt.Errorf("subject_analysis: no subjects provided")
	}

	subjects := make([]string, 0, len(rawSubjects))
	for _, v := range rawSubjects {
		if str, ok := v.(string); ok {
			subjects = append(subjects, str)
		}
	}
	if len(subjects) > MaxSubjects {
		subjects = subjects[:MaxSubjects]
	}

	var lines strings.Builder
	for _, subj := range subjects {
		lines.WriteString(fmt.Sprintf("- %q\n", subj))
	}

	raw, err := s.LLM.Complete(ctx, llm.AnalysisSubject, lines.String())
	if err != nil {
		return nil, fmt.Errorf("subject_analysis: llm call: %w", err)
	}

	var parsed struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Results == nil {
		parsed.Results = []map[string]interface{}{}
	}

	return map[string]interface{}{
		"results": parsed.Results,
		"job_id":  jobID,
	}, nil
}
