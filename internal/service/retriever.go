// Package service holds the retrieval, report-synthesis, and conversation
// logic on top of the index and LLM capabilities.
package service

import (
	"context"

	"github.com/creditlens/creditlens/internal/domain"
)

// DefaultTopK is the fixed retrieval depth for report and chat queries.
const DefaultTopK = 3

// Index defines the interface retrieval needs from a vector index.
type Index interface {
	Query(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// Retriever answers every question with a fresh top-k index query. No caching
// across questions: each question's phrasing differs, and a cache keyed on the
// question would miss relevant passages.
type Retriever struct {
	index Index
	topK  int
}

// NewRetriever creates a Retriever with the fixed retrieval depth.
func NewRetriever(index Index) *Retriever {
	return &Retriever{index: index, topK: DefaultTopK}
}

// Retrieve returns the chunks most relevant to the question, ordered by
// descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.Chunk, error) {
	return r.index.Query(ctx, question, r.topK)
}

// FuseContext merges the uploaded-document text with retrieved passages.
// Retrieval augments, never replaces: when nothing is retrieved the base
// context passes through unchanged, even when it is itself empty.
func FuseContext(baseContext string, retrieved []domain.Chunk) string {
	contextFromRAG := domain.JoinChunks(retrieved)
	if contextFromRAG == "" {
		return baseContext
	}
	return baseContext + "\n" + contextFromRAG
}
