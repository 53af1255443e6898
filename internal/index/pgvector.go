package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/creditlens/creditlens/internal/domain"
)

// PgIndex is the Postgres-backed Store: embeddings persist in the
// corpus_chunks table with a pgvector column. Similarity ordering is delegated
// to the cosine distance operator, with chunk_index as the deterministic
// tie-breaker.
type PgIndex struct {
	pool     *pgxpool.Pool
	name     string
	embedder Embedder
}

// NewPgIndex creates a PgIndex for the named corpus.
func NewPgIndex(pool *pgxpool.Pool, name string, embedder Embedder) *PgIndex {
	return &PgIndex{
		pool:     pool,
		name:     name,
		embedder: embedder,
	}
}

// Build embeds every chunk in order and replaces the persisted corpus inside a
// single transaction. A failed build rolls back and leaves the previous corpus
// intact.
func (p *PgIndex) Build(ctx context.Context, chunks []domain.Chunk) error {
	embeddings := make([]pgvector.Vector, len(chunks))
	for i, chunk := range chunks {
		embedding, err := p.embedder.GenerateEmbedding(ctx, chunk.Content)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
				fmt.Sprintf("failed to embed chunk %d", i), err)
		}
		embeddings[i] = pgvector.NewVector(embedding)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to begin index transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM corpus_chunks WHERE corpus_name = $1`, p.name); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to clear previous corpus", err)
	}

	for i, chunk := range chunks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO corpus_chunks (corpus_name, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4)`,
			p.name, i, chunk.Content, embeddings[i]); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
				fmt.Sprintf("failed to insert chunk %d", i), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to commit index transaction", err)
	}

	return nil
}

// Load verifies the persisted corpus exists. Postgres needs no in-memory
// snapshot, so Load reduces to an existence check.
func (p *PgIndex) Load(ctx context.Context) error {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM corpus_chunks WHERE corpus_name = $1`, p.name).Scan(&count)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
			"failed to check corpus", err)
	}

	if count == 0 {
		return domain.ErrIndexNotFound
	}

	return nil
}

// Query embeds the query text and returns the k nearest chunks by cosine
// distance, earliest chunk_index first among equals.
func (p *PgIndex) Query(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	queryEmbedding, err := p.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding,
			"failed to embed query", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT content
		 FROM corpus_chunks
		 WHERE corpus_name = $1
		 ORDER BY embedding <=> $2, chunk_index
		 LIMIT $3`,
		p.name, pgvector.NewVector(queryEmbedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, domain.NewChunk(content))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	return chunks, nil
}
