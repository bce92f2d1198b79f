package processor

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/pipeworks/taskmesh/internal/embedding"
	"github.com/pipeworks/taskmesh/internal/metrics"
	"github.com/pipeworks/taskmesh/internal/model"
)

// Embedding processor runs the Embedding Pipeline (§4.5) against a job's
// payload, translating the opaque job data into an embedding.Document.
type Embedding struct {
	Pipeline *embedding.Pipeline
}

func NewEmbedding(pipeline *embedding.Pipeline) *Embedding {
	return &Embedding{Pipeline: pipeline}
}

func (e *Embedding) Process(ctx context.Context, payload map[string]interface{}, jobID, traceID, owner string) (map[string]interface{}, error) {
	doc := documentFromPayload(payload, jobID, owner)

	n, err := e.Pipeline.Run(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	metrics.ChunksProcessedTotal.WithLabelValues(doc.Source).Add(float64(n))

	return map[string]interface{}{
		"job_id":      jobID,
		"chunk_count": n,
	}, nil
}

func documentFromPayload(payload map[string]interface{}, jobID, owner string) embedding.Document {
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}
	content := []byte(str("raw_text"))
	if str("subject") != "" {
		content = []byte(str("subject") + "\n\n" + str("raw_text"))
	}

	var tags []string
	if rawTags, ok := payload["tags"].([]interface{}); ok {
		for _, t := range rawTags {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	doc := embedding.Document{
		JobID:       jobID,
		Owner:       owner,
		Source:      str("source"),
		SourceID:    jobID,
		FileType:    "text/html",
		Content:     content,
		Size:        len(content),
		Sensitivity: str("sensitivity"),
		Tags:        tags,
		ExtraData: map[string]interface{}{
			model.PayloadSource: str("source"),
			"sender":            str("sender"),
			"date":              str("date"),
		},
	}

	if hasAttachments, _ := payload["has_attachments"].(bool); hasAttachments {
		if rawAtts, ok := payload["attachments"].([]interface{}); ok {
			for _, a := range rawAtts {
				m, ok := a.(map[string]interface{})
				if !ok {
					continue
				}
				filename, _ := m["filename"].(string)
				fileType, _ := m["mimetype"].(string)
				contentB64, _ := m["content_base64"].(string)
				if fileType == "" || contentB64 == "" {
					continue
				}
				decoded, err := base64.StdEncoding.DecodeString(contentB64)
				if err != nil {
					continue
				}
				doc.Attachments = append(doc.Attachments, embedding.Attachment{
					Filename: filename,
					FileType: fileType,
					Content:  decoded,
					Size:     len(decoded),
				})
			}
		}
	}

	return doc
}
