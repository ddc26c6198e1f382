package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveMatrix persists a raw embedding matrix to path, row-aligned with the
// dataset at build time. Format (little-endian): dimensions (4), rows (4),
// then rows*dimensions float32 values.
func SaveMatrix(path string, dimensions int, vectors [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create embedding dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create embedding file: %w", err)
	}
	defer out.Close()
	if err := binary.Write(out, binary.LittleEndian, uint32(dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range vectors {
		if len(vec) != dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), dimensions)
		}
		if _, err := out.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadMatrix reads a raw embedding matrix from path.
func LoadMatrix(path string) (dimensions int, vectors [][]float32, err error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open embedding file: %w", err)
	}
	defer in.Close()

	var dims, n uint32
	if err := binary.Read(in, binary.LittleEndian, &dims); err != nil {
		return 0, nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(in, binary.LittleEndian, &n); err != nil {
		return 0, nil, fmt.Errorf("read count: %w", err)
	}
	vectors = make([][]float32, 0, n)
	buf := make([]byte, int(dims)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return 0, nil, fmt.Errorf("read vector: %w", err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	return int(dims), vectors, nil
}
