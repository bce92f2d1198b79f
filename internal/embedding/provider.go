package embedding

import "context"

// DenseProvider produces a dense embedding vector for a chunk of text.
// Grounded on the teacher's embeddings.EmbeddingProvider interface,
// generalized with a context for cancellation/deadline propagation.
type DenseProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SparseProvider produces a BM25-like sparse embedding for a chunk.
type SparseProvider interface {
	EmbedSparse(ctx context.Context, text string) ([]int, []float32, error)
}

// LateInteractionProvider produces a per-token matrix for late-interaction
// (e.g. ColBERT-style) retrieval.
type LateInteractionProvider interface {
	EmbedTokens(ctx context.Context, text string) ([][]float32, error)
}
