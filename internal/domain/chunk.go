package domain

import "strings"

// Chunk is the atomic unit of corpus text used for embedding and retrieval.
// Its identity is its content: chunks carry no IDs or cross-reference metadata
// and are immutable once extracted.
type Chunk struct {
	Content string
}

// NewChunk creates a Chunk from raw extracted text.
func NewChunk(content string) Chunk {
	return Chunk{Content: content}
}

// JoinChunks concatenates chunk contents with newline separators, preserving
// order. Returns "" for an empty slice.
func JoinChunks(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n")
}
