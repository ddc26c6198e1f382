package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/embedding"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/pkg/utils"
)

// BuildStatus is the manager's view of a dataset's index.
type BuildStatus string

const (
	// StatusAbsent means no index is loaded and no build is in flight.
	StatusAbsent BuildStatus = "absent"
	// StatusBuilding means a background build is in flight.
	StatusBuilding BuildStatus = "building"
	// StatusReady means a loaded index is available for search.
	StatusReady BuildStatus = "ready"
)

// RowSource supplies dataset rows for index builds: ids and text values in
// stored row order.
type RowSource interface {
	Rows(dataset, textColumn string) (ids []int64, texts []string, err error)
}

// Manager owns the per-dataset embedding indexes. Resolution is three-tier
// and at-most-once: a persisted index is loaded as-is; otherwise persisted
// raw embeddings are loaded and only the index is rebuilt and persisted;
// only when neither artifact exists is the embedding model invoked, after
// which both artifacts are persisted.
type Manager struct {
	indexDir     string
	embeddingDir string
	embedder     embedding.Embedder
	rows         RowSource
	logger       *zap.Logger // optional; when set, logs debug events

	mu      sync.Mutex
	handles map[string]*FlatIndex
	builds  map[string]*build
}

type build struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for debug output (tier hits, build lifecycle).
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an index manager persisting under indexDir and embeddingDir.
func NewManager(indexDir, embeddingDir string, embedder embedding.Embedder, rows RowSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		indexDir:     indexDir,
		embeddingDir: embeddingDir,
		embedder:     embedder,
		rows:         rows,
		handles:      make(map[string]*FlatIndex),
		builds:       make(map[string]*build),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IndexPath returns the persisted index path for a dataset.
func (m *Manager) IndexPath(dataset string) string {
	return filepath.Join(m.indexDir, dataset+".index")
}

// VecPath returns the persisted raw embedding path for a dataset.
func (m *Manager) VecPath(dataset string) string {
	return filepath.Join(m.embeddingDir, dataset+".vec")
}

// Ensure resolves the index for a dataset, computing embeddings only when no
// cached artifact exists. Returns models.ErrIndexBuilding while a background
// build for the same dataset is in flight.
func (m *Manager) Ensure(ctx context.Context, dataset, textColumn string) (*FlatIndex, error) {
	m.mu.Lock()
	if idx, ok := m.handles[dataset]; ok {
		m.mu.Unlock()
		return idx, nil
	}
	if _, ok := m.builds[dataset]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("dataset %q: %w", dataset, models.ErrIndexBuilding)
	}
	b := &build{done: make(chan struct{})}
	m.builds[dataset] = b
	m.mu.Unlock()

	idx, err := m.resolve(ctx, dataset, textColumn)

	m.mu.Lock()
	delete(m.builds, dataset)
	if err == nil {
		m.handles[dataset] = idx
	}
	m.mu.Unlock()
	b.err = err
	close(b.done)
	return idx, err
}

// EnsureAsync starts a background, cancellable build for the dataset and
// returns a channel yielding the build result. If the index is already
// loaded the channel yields nil immediately; if a build is already in
// flight, the channel follows it.
func (m *Manager) EnsureAsync(dataset, textColumn string) <-chan error {
	out := make(chan error, 1)
	m.mu.Lock()
	if _, ok := m.handles[dataset]; ok {
		m.mu.Unlock()
		out <- nil
		return out
	}
	if b, ok := m.builds[dataset]; ok {
		m.mu.Unlock()
		go func() {
			<-b.done
			out <- b.err
		}()
		return out
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &build{cancel: cancel, done: make(chan struct{})}
	m.builds[dataset] = b
	m.mu.Unlock()

	go func() {
		defer cancel()
		idx, err := m.resolve(ctx, dataset, textColumn)

		m.mu.Lock()
		delete(m.builds, dataset)
		if err == nil {
			m.handles[dataset] = idx
		}
		m.mu.Unlock()
		b.err = err
		close(b.done)
		out <- err
	}()
	return out
}

// CancelBuild cancels an in-flight background build. Returns false when no
// build is in flight.
func (m *Manager) CancelBuild(dataset string) bool {
	m.mu.Lock()
	b, ok := m.builds[dataset]
	m.mu.Unlock()
	if !ok || b.cancel == nil {
		return false
	}
	b.cancel()
	return true
}

// Get returns the loaded index for a dataset without triggering a build:
// models.ErrIndexBuilding while a build is in flight, models.ErrIndexNotFound
// when Ensure has not produced an index yet.
func (m *Manager) Get(dataset string) (*FlatIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.handles[dataset]; ok {
		return idx, nil
	}
	if _, ok := m.builds[dataset]; ok {
		return nil, fmt.Errorf("dataset %q: %w", dataset, models.ErrIndexBuilding)
	}
	return nil, fmt.Errorf("dataset %q: %w", dataset, models.ErrIndexNotFound)
}

// Status reports the manager's state for a dataset.
func (m *Manager) Status(dataset string) BuildStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.builds[dataset]; ok {
		return StatusBuilding
	}
	if _, ok := m.handles[dataset]; ok {
		return StatusReady
	}
	return StatusAbsent
}

// Invalidate drops the cached handle for a dataset. On-disk artifacts are
// untouched; a later Ensure reloads them. Called when the dataset's rows
// change externally (the index is only valid while row counts match).
func (m *Manager) Invalidate(dataset string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, dataset)
	if m.logger != nil {
		m.logger.Debug("vector index invalidated", zap.String("dataset", dataset))
	}
}

// Rebuild removes both on-disk artifacts and recomputes the index from text.
func (m *Manager) Rebuild(ctx context.Context, dataset, textColumn string) (*FlatIndex, error) {
	m.Invalidate(dataset)
	if err := os.Remove(m.IndexPath(dataset)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove index artifact: %w", err)
	}
	if err := os.Remove(m.VecPath(dataset)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove embedding artifact: %w", err)
	}
	return m.Ensure(ctx, dataset, textColumn)
}

// resolve runs the three-tier resolution. Tier order guarantees embeddings
// are computed at most once per dataset and that the index is always
// rebuildable from the vec artifact without re-encoding text.
func (m *Manager) resolve(ctx context.Context, dataset, textColumn string) (*FlatIndex, error) {
	// Tier 1: persisted index.
	if _, err := os.Stat(m.IndexPath(dataset)); err == nil {
		idx, err := LoadFlatIndex(m.IndexPath(dataset))
		if err != nil {
			return nil, fmt.Errorf("load index for %q: %w", dataset, err)
		}
		if m.logger != nil {
			m.logger.Debug("vector index loaded from disk",
				zap.String("dataset", dataset), zap.Int("size", idx.Size()))
		}
		return idx, nil
	}

	// Tier 2: persisted raw embeddings; rebuild and persist the index only.
	if _, err := os.Stat(m.VecPath(dataset)); err == nil {
		dims, vectors, err := LoadMatrix(m.VecPath(dataset))
		if err != nil {
			return nil, fmt.Errorf("load embeddings for %q: %w", dataset, err)
		}
		ids, _, err := m.rows.Rows(dataset, textColumn)
		if err != nil {
			return nil, err
		}
		if len(ids) == len(vectors) {
			idx, err := m.buildIndex(dataset, dims, ids, vectors)
			if err != nil {
				return nil, err
			}
			if m.logger != nil {
				m.logger.Debug("vector index rebuilt from embeddings",
					zap.String("dataset", dataset), zap.Int("size", idx.Size()))
			}
			return idx, nil
		}
		// Row count changed since the vec artifact was written; it is no
		// longer row-aligned, fall through to a full recompute.
		if m.logger != nil {
			m.logger.Warn("embedding artifact stale, recomputing",
				zap.String("dataset", dataset), zap.Int("rows", len(ids)), zap.Int("vectors", len(vectors)))
		}
	}

	// Tier 3: encode every row's text, persist embeddings then the index.
	ids, texts, err := m.rows.Rows(dataset, textColumn)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("index build for %q cancelled: %w", dataset, err)
		}
		vec, err := m.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text for %q: %w", dataset, err)
		}
		utils.NormalizeL2(vec)
		vectors = append(vectors, vec)
	}
	if err := SaveMatrix(m.VecPath(dataset), m.embedder.Dimensions(), vectors); err != nil {
		return nil, err
	}
	idx, err := m.buildIndex(dataset, m.embedder.Dimensions(), ids, vectors)
	if err != nil {
		return nil, err
	}
	if m.logger != nil {
		m.logger.Info("vector index built",
			zap.String("dataset", dataset), zap.Int("size", idx.Size()))
	}
	return idx, nil
}

func (m *Manager) buildIndex(dataset string, dims int, ids []int64, vectors [][]float32) (*FlatIndex, error) {
	idx, err := NewFlatIndex(dims)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ids, vectors); err != nil {
		return nil, err
	}
	if err := idx.Save(m.IndexPath(dataset)); err != nil {
		return nil, err
	}
	return idx, nil
}
