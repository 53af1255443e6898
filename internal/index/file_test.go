package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creditlens/creditlens/internal/domain"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// stubEmbedder maps texts to fixed vectors, so similarity ordering in tests
// is fully controlled.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, errors.New("no stub vector for " + text)
	}
	return v, nil
}

func chunksOf(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.NewChunk(t)
	}
	return chunks
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func newTestFileIndex(t *testing.T, embedder Embedder) *FileIndex {
	path := filepath.Join(t.TempDir(), "corpus.index.json")
	return NewFileIndex(path, "test-model", embedder)
}

func TestFileIndex_BuildAndQuery(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"apples":  {1, 0, 0},
		"oranges": {0, 1, 0},
		"trains":  {0, 0, 1},
		"fruit":   {0.7, 0.7, 0},
	}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("apples", "oranges", "trains")))

	got, err := idx.Query(context.Background(), "fruit", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"apples", "oranges"}, contents(got))
}

func TestFileIndex_QueryDeterministic(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"c": {0.5, 0.5},
		"q": {0.6, 0.4},
	}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("a", "b", "c")))

	first, err := idx.Query(context.Background(), "q", 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := idx.Query(context.Background(), "q", 3)
		require.NoError(t, err)
		assert.Equal(t, contents(first), contents(again))
	}
}

func TestFileIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	// Identical embeddings for every chunk: all scores tie, so the corpus
	// order must decide.
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"first":  {1, 1},
		"second": {1, 1},
		"third":  {1, 1},
		"q":      {1, 0},
	}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("first", "second", "third")))

	got, err := idx.Query(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, contents(got))
}

func TestFileIndex_QueryKLargerThanCorpus(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"only": {1, 0},
		"q":    {1, 0},
	}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("only")))

	got, err := idx.Query(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileIndex_QueryValidation(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"a": {1}}}
	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("a")))

	_, err := idx.Query(context.Background(), "a", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)

	_, err = idx.Query(context.Background(), "a", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)

	_, err = idx.Query(context.Background(), "", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestFileIndex_QueryWithoutLoad(t *testing.T) {
	idx := newTestFileIndex(t, &stubEmbedder{})

	_, err := idx.Query(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestFileIndex_LoadMissingArtifact(t *testing.T) {
	idx := newTestFileIndex(t, &stubEmbedder{})

	err := idx.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestFileIndex_LoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.index.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	idx := NewFileIndex(path, "test-model", &stubEmbedder{})
	err := idx.Load(context.Background())

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeIndexCorrupt, domainErr.Code)
}

func TestFileIndex_LoadRejectsEmptyEmbedding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.index.json")
	artifact := `{"version":1,"model":"m","dimensions":2,"entries":[{"content":"a","embedding":[]}]}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	idx := NewFileIndex(path, "m", &stubEmbedder{})
	err := idx.Load(context.Background())

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeIndexCorrupt, domainErr.Code)
}

func TestFileIndex_BuildPersistsAcrossInstances(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"q": {1, 0},
	}}

	path := filepath.Join(t.TempDir(), "corpus.index.json")
	first := NewFileIndex(path, "m", embedder)
	require.NoError(t, first.Build(context.Background(), chunksOf("a", "b")))

	second := NewFileIndex(path, "m", embedder)
	require.NoError(t, second.Load(context.Background()))

	got, err := second.Query(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, contents(got))
}

func TestFileIndex_BuildOverwritesPreviousArtifact(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"old": {1, 0},
		"new": {0, 1},
		"q":   {0, 1},
	}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), chunksOf("old")))
	require.NoError(t, idx.Build(context.Background(), chunksOf("new")))

	got, err := idx.Query(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, contents(got))
}

func TestFileIndex_BuildEmbeddingFailureLeavesArtifactIntact(t *testing.T) {
	mockEmbedder := new(MockEmbedder)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "good").Return([]float32{1, 0}, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "bad").Return(nil, errors.New("quota exceeded"))

	path := filepath.Join(t.TempDir(), "corpus.index.json")
	idx := NewFileIndex(path, "m", mockEmbedder)

	require.NoError(t, idx.Build(context.Background(), chunksOf("good")))

	err := idx.Build(context.Background(), chunksOf("bad"))
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeIndexBuild, domainErr.Code)

	// A fresh instance still loads the previous artifact.
	fresh := NewFileIndex(path, "m", mockEmbedder)
	assert.NoError(t, fresh.Load(context.Background()))
}

func TestFileIndex_EmptyCorpus(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	idx := newTestFileIndex(t, embedder)
	require.NoError(t, idx.Build(context.Background(), nil))

	got, err := idx.Query(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
