package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/creditlens/creditlens/internal/domain"
)

// artifactVersion guards the on-disk format. Bump when the layout changes.
const artifactVersion = 1

// artifact is the persisted JSON form of a file-backed index. Entry order is
// corpus insertion order and is load-bearing for tie-breaking.
type artifact struct {
	Version    int     `json:"version"`
	Model      string  `json:"model"`
	Dimensions int     `json:"dimensions"`
	Entries    []entry `json:"entries"`
}

type entry struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// FileIndex is the file-backed Store: embeddings persist as a single JSON
// artifact at a fixed path. Loaded entries are held in memory and queried by
// brute-force cosine similarity.
type FileIndex struct {
	path     string
	model    string
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
	loaded  bool
}

// NewFileIndex creates a FileIndex over the artifact at path. The index is not
// loaded until Load or Build is called.
func NewFileIndex(path, model string, embedder Embedder) *FileIndex {
	return &FileIndex{
		path:     path,
		model:    model,
		embedder: embedder,
	}
}

// Path returns the artifact location.
func (f *FileIndex) Path() string {
	return f.path
}

// Loaded reports whether the index holds a usable snapshot.
func (f *FileIndex) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// Build embeds every chunk in order and atomically replaces the persisted
// artifact. A failed build leaves any previous artifact untouched.
func (f *FileIndex) Build(ctx context.Context, chunks []domain.Chunk) error {
	entries := make([]entry, 0, len(chunks))
	dimensions := 0

	for i, chunk := range chunks {
		embedding, err := f.embedder.GenerateEmbedding(ctx, chunk.Content)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
				fmt.Sprintf("failed to embed chunk %d", i), err)
		}
		if dimensions == 0 {
			dimensions = len(embedding)
		}
		entries = append(entries, entry{Content: chunk.Content, Embedding: embedding})
	}

	art := artifact{
		Version:    artifactVersion,
		Model:      f.model,
		Dimensions: dimensions,
		Entries:    entries,
	}

	if err := f.writeArtifact(&art); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to persist index artifact", err)
	}

	f.mu.Lock()
	f.entries = entries
	f.loaded = true
	f.mu.Unlock()

	return nil
}

// Load reads the persisted artifact into memory.
func (f *FileIndex) Load(ctx context.Context) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrIndexNotFound
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
			"failed to read index artifact", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
			"failed to parse index artifact", err)
	}

	if art.Version != artifactVersion {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
			fmt.Sprintf("unsupported index artifact version %d", art.Version), nil)
	}

	for i, e := range art.Entries {
		if len(e.Embedding) == 0 {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
				fmt.Sprintf("index entry %d has no embedding", i), nil)
		}
		if art.Dimensions > 0 && len(e.Embedding) != art.Dimensions {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexCorrupt,
				fmt.Sprintf("index entry %d has %d dimensions, expected %d",
					i, len(e.Embedding), art.Dimensions), nil)
		}
	}

	f.mu.Lock()
	f.entries = art.Entries
	f.loaded = true
	f.mu.Unlock()

	return nil
}

// Query embeds the query text and returns the k most similar chunks. Results
// are ordered by descending similarity; equal scores resolve to the earlier
// corpus position.
func (f *FileIndex) Query(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	f.mu.RLock()
	loaded := f.loaded
	entries := f.entries
	f.mu.RUnlock()

	if !loaded {
		return nil, domain.ErrIndexNotFound
	}
	if len(entries) == 0 {
		return []domain.Chunk{}, nil
	}

	queryEmbedding, err := f.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding,
			"failed to embed query", err)
	}

	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = cosineSimilarity(queryEmbedding, e.Embedding)
	}

	positions := rankTopK(scores, k)
	chunks := make([]domain.Chunk, len(positions))
	for i, pos := range positions {
		chunks[i] = domain.NewChunk(entries[pos].Content)
	}

	return chunks, nil
}

// writeArtifact writes the artifact through a temp file and rename so readers
// never observe a half-written index.
func (f *FileIndex) writeArtifact(art *artifact) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("failed to encode index artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace index artifact: %w", err)
	}

	return nil
}
