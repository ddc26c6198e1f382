package vector

import (
	"path/filepath"
	"testing"
)

func TestFlatIndex_SearchOrdering(t *testing.T) {
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Add(
		[]int64{10, 11, 12},
		[][]float32{{1, 0}, {0.6, 0.8}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != 10 || results[1].ID != 11 || results[2].ID != 12 {
		t.Errorf("unexpected order: %+v", results)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not non-increasing: %+v", results)
		}
	}
}

func TestFlatIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	// ids deliberately descending so a by-id re-sort would be visible
	_ = idx.Add([]int64{5, 3, 1}, [][]float32{{1, 0}, {1, 0}, {1, 0}})
	results, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != 5 || results[1].ID != 3 || results[2].ID != 1 {
		t.Errorf("ties must keep insertion order, got %+v", results)
	}
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	_ = idx.Add([]int64{0, 1}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	path := filepath.Join(t.TempDir(), "ds.index")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFlatIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 || loaded.Dimensions() != 3 {
		t.Fatalf("unexpected loaded index: size=%d dims=%d", loaded.Size(), loaded.Dimensions())
	}
	vec, ok := loaded.VectorByID(1)
	if !ok || vec[1] != 1 {
		t.Errorf("unexpected vector for id 1: %v %v", vec, ok)
	}
}

func TestMatrix_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.vec")
	in := [][]float32{{0.5, 0.5}, {1, 0}}
	if err := SaveMatrix(path, 2, in); err != nil {
		t.Fatal(err)
	}
	dims, out, err := LoadMatrix(path)
	if err != nil {
		t.Fatal(err)
	}
	if dims != 2 || len(out) != 2 || out[0][1] != 0.5 || out[1][0] != 1 {
		t.Errorf("round-trip mismatch: dims=%d out=%v", dims, out)
	}
}
