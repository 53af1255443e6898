// Package index owns the persistent vector index over corpus chunks: build,
// load, and deterministic top-k similarity queries.
package index

import (
	"context"
	"math"
	"sort"

	"github.com/creditlens/creditlens/internal/domain"
)

// Embedder defines the interface for embedding generation
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Store is a persistent vector index backend. Build is destructive: it
// replaces any previously persisted artifact. Query must be deterministic for
// a fixed snapshot: results ordered by descending similarity, ties broken by
// corpus insertion order.
type Store interface {
	// Build embeds every chunk and persists the index, overwriting any
	// existing artifact.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// Load opens a previously persisted index. Returns
	// domain.ErrIndexNotFound when no artifact exists and
	// domain.ErrIndexCorrupt when it cannot be parsed into valid vectors.
	Load(ctx context.Context) error

	// Query returns up to k chunks most similar to the query text.
	Query(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// scored pairs a corpus position with its similarity score.
type scored struct {
	pos   int
	score float64
}

// rankTopK returns the positions of the k highest-scoring entries, ordered by
// descending score with insertion-order tie-breaking.
func rankTopK(scores []float64, k int) []int {
	ranked := make([]scored, len(scores))
	for i, s := range scores {
		ranked[i] = scored{pos: i, score: s}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].pos < ranked[j].pos
	})

	if k > len(ranked) {
		k = len(ranked)
	}

	positions := make([]int, k)
	for i := 0; i < k; i++ {
		positions[i] = ranked[i].pos
	}
	return positions
}

// cosineSimilarity computes the cosine similarity of two vectors. Zero-norm
// vectors score 0 rather than NaN.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
