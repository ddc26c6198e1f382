package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatIndex is a brute-force inner-product index over row-aligned vectors.
// IDs are the dataset row ids at build time; vectors are assumed normalized
// so inner-product ranking equals cosine-similarity ranking. The index is
// rebuilt, never incrementally updated, when the dataset's rows change.
type FlatIndex struct {
	dimensions int
	ids        []int64
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates a flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		ids:        make([]int64, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors with the given ids, preserving insertion order.
func (f *FlatIndex) Add(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), f.dimensions)
		}
		vec := make([]float32, f.dimensions)
		copy(vec, vectors[i])
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the top-k hits by inner product, descending. Ties keep the
// index's insertion order (stable sort, no re-sort by id). k larger than the
// index size is truncated.
func (f *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	results := make([]Result, len(f.ids))
	for i, vec := range f.vectors {
		results[i] = Result{ID: f.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// VectorByID returns the stored vector for id, or false when absent.
func (f *FlatIndex) VectorByID(id int64) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, got := range f.ids {
		if got == id {
			return f.vectors[i], true
		}
	}
	return nil, false
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Save persists the index to path. Directory is created if needed.
// Format (little-endian): dimensions (4), n (4), then per row: id (8),
// vector (dimensions*4).
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer out.Close()
	if err := binary.Write(out, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		if err := binary.Write(out, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := out.Write(float32SliceToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadFlatIndex reads a persisted index from path.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer in.Close()

	var dims, n uint32
	if err := binary.Read(in, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(in, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	f, err := NewFlatIndex(int(dims))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, int(dims)*4)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(in, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, bytesToFloat32Slice(buf))
	}
	return f, nil
}
