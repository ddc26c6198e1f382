// Package vector provides the per-dataset embedding index: a flat
// inner-product index over L2-normalized vectors, its persisted artifacts,
// and the manager that builds and caches indexes lazily.
package vector

import (
	"encoding/binary"
	"math"
)

// Result is a single nearest-neighbor hit.
type Result struct {
	ID    int64
	Score float64 // inner product; cosine similarity for normalized vectors
}

// InnerProduct returns the inner product of two vectors (equals cosine
// similarity for normalized vectors).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
