package embedding

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/vectorstore"
)

// PointStore is the subset of the Vector Store Adapter the pipeline needs,
// narrowed to an interface so the pipeline can be tested without a live
// Weaviate instance.
type PointStore interface {
	UpsertPoint(ctx context.Context, className, owner string, p model.Point) error
}

// Size limits enforced by the pipeline's size gate (§4.5 step 1).
const (
	MaxFileSize = 10_000_000 // bytes, whole document/attachment
	MaxTextSize = 500_000    // characters, extracted text per blob
)

// DefaultBatchSize is how many chunks are submitted to the embedding
// provider(s) per batch (§4.5 step 4).
const DefaultBatchSize = 10

// Attachment is one attachment carried alongside a document's inline body,
// embedded independently with its own payload metadata.
type Attachment struct {
	Filename string
	FileType string
	Content  []byte
	Size     int
}

// Document is the pipeline's unit of work: an inline body plus zero or more
// attachments, all belonging to the same job.
type Document struct {
	JobID       string
	Owner       string
	Source      string
	SourceID    string
	FileType    string
	Content     []byte
	Size        int
	Sensitivity string
	Tags        []string
	Attachments []Attachment
	ExtraData   map[string]interface{}
}

// Pipeline wires extraction, chunking, embedding, and persistence into the
// Embedding Pipeline (§4.5). Sparse and LateInteraction providers are
// optional; when nil their representations are left empty on the point.
type Pipeline struct {
	Chunker         *Chunker
	Dense           DenseProvider
	Sparse          SparseProvider
	LateInteraction LateInteractionProvider
	Store           PointStore
	BatchSize       int
	Log             zerolog.Logger
}

// NewPipeline builds a Pipeline with default chunking and batch size.
func NewPipeline(dense DenseProvider, store PointStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Chunker:   NewChunker(DefaultChunkSize, DefaultChunkOverlap),
		Dense:     dense,
		Store:     store,
		BatchSize: DefaultBatchSize,
		Log:       log,
	}
}

// Run executes the full pipeline for doc: size gate, extraction, chunking,
// batched embedding, point assembly, attachment recursion, and upsert into
// "{owner}_knowledge_base". Returns the number of points persisted for the
// inline body and all attachments combined.
func (p *Pipeline) Run(ctx context.Context, doc Document) (int, error) {
	class := vectorstore.KnowledgeBaseClass(doc.Owner)

	bodyCount, err := p.embedOne(ctx, class, doc, doc.FileType, doc.Content, doc.Size, "")
	if err != nil {
		return 0, fmt.Errorf("embed document body: %w", err)
	}

	total := bodyCount
	for _, att := range doc.Attachments {
		n, err := p.embedOne(ctx, class, doc, att.FileType, att.Content, att.Size, att.Filename)
		if err != nil {
			p.Log.Error().Err(err).Str("job_id", doc.JobID).Str("filename", att.Filename).
				Msg("attachment embedding failed, continuing")
			continue
		}
		total += n
	}
	return total, nil
}

// embedOne runs the size gate, extraction, chunking, embedding, and upsert
// for a single blob (the document body, or one attachment).
func (p *Pipeline) embedOne(ctx context.Context, class string, doc Document, fileType string, content []byte, size int, filename string) (int, error) {
	if size > MaxFileSize {
		return 0, fmt.Errorf("size %d exceeds max file size %d", size, MaxFileSize)
	}

	text, err := Extract(content, fileType)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	if utf8.RuneCountInString(text) > MaxTextSize {
		p.Log.Warn().Str("job_id", doc.JobID).Int("original_len", len(text)).
			Msg("truncating text to max text size")
		text = string([]rune(text)[:MaxTextSize])
	}
	if text == "" {
		return 0, nil
	}

	chunks := p.Chunker.Chunk(text)
	points := p.assemblePoints(doc, chunks, filename)

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	persisted := 0
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		if err := p.embedBatch(ctx, batch); err != nil {
			p.Log.Error().Err(err).Str("job_id", doc.JobID).Int("batch_start", start).
				Msg("embedding batch failed, continuing with next batch")
			continue
		}

		for _, pt := range batch {
			if err := p.Store.UpsertPoint(ctx, class, doc.Owner, pt); err != nil {
				p.Log.Error().Err(err).Str("job_id", doc.JobID).Str("point_id", pt.ID).
					Msg("point upsert failed")
				continue
			}
			persisted++
		}
	}
	return persisted, nil
}

// assemblePoints builds one Point per chunk with payload fields per §4.5
// step 5; vectors are filled in by embedBatch.
func (p *Pipeline) assemblePoints(doc Document, chunks []string, filename string) []model.Point {
	sensitivity := doc.Sensitivity
	if sensitivity == "" {
		sensitivity = model.DefaultSensitivity
	}

	points := make([]model.Point, 0, len(chunks))
	for i, chunk := range chunks {
		preview := chunk
		if len(preview) > model.ContentPreviewLen {
			preview = preview[:model.ContentPreviewLen]
		}

		payload := map[string]interface{}{
			model.PayloadJobID:          doc.JobID,
			model.PayloadChunkIndex:     i,
			model.PayloadContent:        chunk,
			model.PayloadContentPreview: preview,
			model.PayloadSensitivity:    sensitivity,
			model.PayloadTags:           doc.Tags,
			model.PayloadSource:         doc.Source,
			model.PayloadSourceID:       doc.SourceID,
			model.PayloadOwner:          doc.Owner,
		}
		if filename != "" {
			payload["filename"] = filename
		}
		for k, v := range doc.ExtraData {
			payload[k] = v
		}

		points = append(points, model.Point{
			ID:      uuid.NewString(),
			Payload: payload,
		})
	}
	return points
}

// embedBatch fills in the dense, sparse, and late-interaction vectors for
// each point in batch in place.
func (p *Pipeline) embedBatch(ctx context.Context, batch []model.Point) error {
	for i := range batch {
		content, _ := batch[i].Payload[model.PayloadContent].(string)

		dense, err := p.Dense.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("dense embed chunk %d: %w", i, err)
		}
		batch[i].Vectors.Dense = dense

		if p.Sparse != nil {
			indices, values, err := p.Sparse.EmbedSparse(ctx, content)
			if err != nil {
				return fmt.Errorf("sparse embed chunk %d: %w", i, err)
			}
			batch[i].Vectors.Sparse = model.SparseVector{Indices: indices, Values: values}
		}

		if p.LateInteraction != nil {
			tokens, err := p.LateInteraction.EmbedTokens(ctx, content)
			if err != nil {
				return fmt.Errorf("late-interaction embed chunk %d: %w", i, err)
			}
			batch[i].Vectors.LateInteraction = tokens
		}
	}
	return nil
}
