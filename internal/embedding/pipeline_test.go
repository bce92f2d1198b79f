package embedding

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeworks/taskmesh/internal/model"
)

type fakeDenseProvider struct {
	mu       sync.Mutex
	calls    int
	failFrom int // fail every call at or after this index, 0 = never
}

func (f *fakeDenseProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFrom != 0 && f.calls >= f.failFrom {
		return nil, fmt.Errorf("simulated embed failure")
	}
	return []float32{float32(len(text))}, nil
}

type fakePointStore struct {
	mu     sync.Mutex
	points []model.Point
}

func (f *fakePointStore) UpsertPoint(ctx context.Context, className, owner string, p model.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
	return nil
}

func TestPipeline_RunEmbedsAndPersistsChunks(t *testing.T) {
	dense := &fakeDenseProvider{}
	store := &fakePointStore{}
	p := NewPipeline(dense, store, zerolog.Nop())

	doc := Document{
		JobID:    "job-1",
		Owner:    "acme",
		Source:   "email",
		SourceID: "msg-1",
		FileType: "text/plain",
		Content:  []byte("hello world, this is the body of the email."),
		Size:     44,
	}

	n, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.points, 1)
	assert.Equal(t, "job-1", store.points[0].Payload[model.PayloadJobID])
	assert.Equal(t, 0, store.points[0].Payload[model.PayloadChunkIndex])
	assert.NotEmpty(t, store.points[0].Vectors.Dense)
}

func TestPipeline_RunIsolatesAttachmentFailures(t *testing.T) {
	dense := &fakeDenseProvider{}
	store := &fakePointStore{}
	p := NewPipeline(dense, store, zerolog.Nop())

	doc := Document{
		JobID:    "job-2",
		Owner:    "acme",
		Source:   "email",
		FileType: "text/plain",
		Content:  []byte("body text"),
		Size:     9,
		Attachments: []Attachment{
			{Filename: "bad.xyz", FileType: "application/x-unknown", Content: []byte("junk"), Size: 4},
			{Filename: "good.txt", FileType: "text/plain", Content: []byte("attachment text"), Size: 15},
		},
	}

	n, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	// body (1) + the one good attachment (1); the bad attachment is skipped.
	assert.Equal(t, 2, n)
}

func TestPipeline_SizeGateRejectsOversizedBlob(t *testing.T) {
	dense := &fakeDenseProvider{}
	store := &fakePointStore{}
	p := NewPipeline(dense, store, zerolog.Nop())

	doc := Document{
		JobID:    "job-3",
		Owner:    "acme",
		FileType: "text/plain",
		Content:  []byte("x"),
		Size:     MaxFileSize + 1,
	}

	_, err := p.Run(context.Background(), doc)
	assert.Error(t, err)
}

func TestPipeline_ContinuesAfterBatchFailure(t *testing.T) {
	dense := &fakeDenseProvider{failFrom: 1}
	store := &fakePointStore{}
	p := NewPipeline(dense, store, zerolog.Nop())
	p.Chunker = NewChunker(10, 2)
	p.BatchSize = 2

	longText := ""
	for i := 0; i < 50; i++ {
		longText += "word "
	}

	doc := Document{JobID: "job-4", Owner: "acme", FileType: "text/plain", Content: []byte(longText), Size: len(longText)}

	n, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
