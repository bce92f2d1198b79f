package model

// SparseVector is an IDF-weighted sparse embedding: parallel index/value
// slices, following the BM25-like representation described for the Vector
// Store Adapter.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float32 `json:"values"`
}

// Vectors bundles the three representations produced per chunk for hybrid
// retrieval: a dense embedding, a sparse (BM25-like) embedding, and a
// late-interaction matrix (token-level vectors, e.g. ColBERT-style).
type Vectors struct {
	Dense            []float32    `json:"dense"`
	Sparse           SparseVector `json:"sparse"`
	LateInteraction  [][]float32  `json:"late_interaction"`
}

// Point is one chunk's persisted representation in a vector collection.
type Point struct {
	ID      string                 `json:"id"`
	Vectors Vectors                `json:"vectors"`
	Payload map[string]interface{} `json:"payload"`
}

// Payload field names used consistently across the embedding pipeline and
// the vector store adapter, so call sites never hand-roll the string keys.
const (
	PayloadJobID          = "job_id"
	PayloadChunkIndex     = "chunk_index"
	PayloadContent        = "content"
	PayloadContentPreview = "content_preview"
	PayloadSensitivity    = "sensitivity"
	PayloadTags           = "tags"
	PayloadSource         = "source"
	PayloadSourceID       = "source_id"
	PayloadOwner          = "owner"
)

// DefaultSensitivity is applied to points when the caller's extra_data does
// not specify one.
const DefaultSensitivity = "internal"

// ContentPreviewLen bounds the length of the payload's content_preview field.
const ContentPreviewLen = 100
