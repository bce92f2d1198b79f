// Package embedding implements the Embedding Pipeline (§4.5): size gating,
// MIME-dispatched text extraction, fixed-window chunking, multi-representation
// embedding, and point assembly for the Vector Store Adapter.
package embedding

import (
	"strings"
	"unicode/utf8"
)

// Default chunk sizing, overridable per Chunker instance. Grounded on the
// original implementation's TextChunker defaults (chunk_size=300,
// chunk_overlap=50, characters).
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
	breakSearchWindow   = 50
)

// Chunker splits text into overlapping fixed-size windows, preferring to
// break on a paragraph, line, or sentence boundary near the window edge
// rather than mid-word.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewChunker builds a Chunker, substituting the defaults for invalid sizes
// the same way the original utility falls back to 300/50 on bad input.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Chunk splits text into chunks of at most ChunkSize characters, overlapping
// consecutive chunks by ChunkOverlap characters. Runes are treated as the
// unit of length so multi-byte text chunks consistently.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		breakPoint := c.findBreakPoint(runes, end)
		chunks = append(chunks, string(runes[start:breakPoint]))

		start = breakPoint - c.ChunkOverlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

// findBreakPoint looks backward from position within a breakSearchWindow
// for a paragraph break, then a line break, then a sentence end, in that
// priority order, falling back to position itself when none is found.
func (c *Chunker) findBreakPoint(runes []rune, position int) int {
	searchStart := position - breakSearchWindow
	if searchStart < 0 {
		searchStart = 0
	}
	window := string(runes[searchStart:position])

	if i := strings.LastIndex(window, "\n\n"); i != -1 {
		return searchStart + utf8.RuneCountInString(window[:i]) + 2
	}
	if i := strings.LastIndex(window, "\n"); i != -1 {
		return searchStart + utf8.RuneCountInString(window[:i]) + 1
	}
	if i := strings.LastIndex(window, ". "); i != -1 {
		return searchStart + utf8.RuneCountInString(window[:i]) + 2
	}
	return position
}
