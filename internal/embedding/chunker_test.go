package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunker_ShortTextReturnsSingleChunk(t *testing.T) {
	c := NewChunker(300, 50)
	chunks := c.Chunk("short text")
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestChunker_EmptyTextReturnsNil(t *testing.T) {
	c := NewChunker(300, 50)
	assert.Nil(t, c.Chunk(""))
}

func TestChunker_BreaksOnParagraph(t *testing.T) {
	c := NewChunker(20, 5)
	text := "0123456789\n\nabcdefghij"
	chunks := c.Chunk(text)
	assert.Equal(t, "0123456789\n\n", chunks[0])
}

func TestChunker_FallsBackToHardBoundary(t *testing.T) {
	c := NewChunker(10, 2)
	text := strings.Repeat("a", 30)
	chunks := c.Chunk(text)
	assert.True(t, len(chunks) > 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 10)
	}
}

func TestChunker_InvalidSizesFallBackToDefaults(t *testing.T) {
	c := NewChunker(-1, -1)
	assert.Equal(t, DefaultChunkSize, c.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, c.ChunkOverlap)

	c2 := NewChunker(10, 10)
	assert.Equal(t, DefaultChunkOverlap, c2.ChunkOverlap)
}

func TestChunker_ReassemblesWithOverlap(t *testing.T) {
	c := NewChunker(20, 5)
	text := strings.Repeat("word ", 20)
	chunks := c.Chunk(text)
	assert.True(t, len(chunks) > 1)
	// every chunk after the first should share a prefix with the tail of
	// its predecessor, since overlap windows back into the prior chunk.
	for i := 1; i < len(chunks); i++ {
		assert.NotEmpty(t, chunks[i])
		prev := []rune(chunks[i-1])
		assert.True(t, strings.HasPrefix(chunks[i], string(prev[len(prev)-5:])))
	}
}
