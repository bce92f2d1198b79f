package processor

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeworks/taskmesh/internal/embedding"
	"github.com/pipeworks/taskmesh/internal/model"
)

type fakeDense struct{}

func (fakeDense) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

type fakeStore struct{ points []model.Point }

func (f *fakeStore) UpsertPoint(ctx context.Context, className, owner string, p model.Point) error {
	f.points = append(f.points, p)
	return nil
}

func TestEmbeddingProcessor_RunsPipelineAgainstJobPayload(t *testing.T) {
	store := &fakeStore{}
	pipeline := embedding.NewPipeline(fakeDense{}, store, zerolog.Nop())
	proc := NewEmbedding(pipeline)

	payload := map[string]interface{}{
		"subject":  "Weekly update",
		"raw_text": "<p>Everything is on track this week.</p>",
		"source":   "email",
		"sender":   "alice@acme.com",
	}

	out, err := proc.Process(context.Background(), payload, "job-1", "trace-1", "acme")
	require.NoError(t, err)
	assert.Equal(t, "job-1", out["job_id"])
	assert.Equal(t, 1, out["chunk_count"])
	require.Len(t, store.points, 1)
}

func TestDocumentFromPayload_DecodesAttachments(t *testing.T) {
	payload := map[string]interface{}{
		"raw_text":        "body",
		"has_attachments": true,
		"attachments": []interface{}{
			map[string]interface{}{
				"filename":       "note.txt",
				"mimetype":       "text/plain",
				"content_base64": "aGVsbG8=", // "hello"
			},
		},
	}

	doc := documentFromPayload(payload, "job-1", "acme")
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, "hello", string(doc.Attachments[0].Content))
}
