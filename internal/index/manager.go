package index

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/creditlens/creditlens/internal/domain"
)

// CorpusLoader supplies the chunks an index build embeds.
type CorpusLoader interface {
	LoadDir(dir string) ([]domain.Chunk, error)
}

// Manager mediates access to a Store. Ensure loads the persisted index if one
// exists and builds it from the corpus directory only when it is absent; a
// corrupt artifact is an error, never a rebuild trigger. At most one
// load-or-build runs at a time per Manager, and later callers reuse the
// outcome of the first.
type Manager struct {
	store     Store
	loader    CorpusLoader
	corpusDir string

	mu    sync.Mutex
	ready bool
}

// NewManager creates a Manager over a Store and the corpus directory that
// backs fresh builds.
func NewManager(store Store, loader CorpusLoader, corpusDir string) *Manager {
	return &Manager{
		store:     store,
		loader:    loader,
		corpusDir: corpusDir,
	}
}

// Ensure makes the index queryable: load the persisted artifact, or build it
// from the corpus when no artifact exists. Safe for concurrent use; only the
// first caller does the work.
func (m *Manager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}

	err := m.store.Load(ctx)
	if err == nil {
		m.ready = true
		return nil
	}

	if !errors.Is(err, domain.ErrIndexNotFound) {
		return err
	}

	log.Printf("index artifact not found, building from corpus directory %s", m.corpusDir)

	chunks, loadErr := m.loader.LoadDir(m.corpusDir)
	if loadErr != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to load corpus for index build", loadErr)
	}

	if err := m.store.Build(ctx, chunks); err != nil {
		return err
	}

	log.Printf("index built with %d chunks", len(chunks))
	m.ready = true
	return nil
}

// Rebuild discards the ensure state and rebuilds the index from the corpus
// directory unconditionally.
func (m *Manager) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ready = false

	chunks, err := m.loader.LoadDir(m.corpusDir)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild,
			"failed to load corpus for index rebuild", err)
	}

	if err := m.store.Build(ctx, chunks); err != nil {
		return err
	}

	log.Printf("index rebuilt with %d chunks", len(chunks))
	m.ready = true
	return nil
}

// Query ensures the index then delegates to the Store.
func (m *Manager) Query(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if err := m.Ensure(ctx); err != nil {
		return nil, err
	}
	return m.store.Query(ctx, query, k)
}
