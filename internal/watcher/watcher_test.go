package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	var changed []string
	var mu sync.Mutex
	onChange := func(name string) {
		mu.Lock()
		changed = append(changed, name)
		mu.Unlock()
	}

	w := NewWatcher(dir, onChange, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "animals.csv")
	for i := 0; i < 3; i++ {
		if err := writeFile(path, "id,text\n0,cat\n"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(changed) < 1 {
		t.Fatal("expected at least one change callback")
	}
	// The write burst must collapse, not fire once per write.
	if len(changed) > 2 {
		t.Errorf("debounce did not collapse burst: %v", changed)
	}
	for _, name := range changed {
		if name != "animals" {
			t.Errorf("callback got %q, want dataset name animals", name)
		}
	}
}

func TestWatcher_IgnoresNonCSV(t *testing.T) {
	dir := t.TempDir()
	var changed []string
	var mu sync.Mutex
	onChange := func(name string) {
		mu.Lock()
		changed = append(changed, name)
		mu.Unlock()
	}

	w := NewWatcher(dir, onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "datasets_meta.yaml"), "animals:\n"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "round-one_labels.txt"), "greet\n"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(changed) != 0 {
		t.Errorf("non-CSV files triggered callbacks: %v", changed)
	}
}

func TestWatcher_RemoveFiresImmediately(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "animals.csv")
	if err := writeFile(path, "id,text\n0,cat\n"); err != nil {
		t.Fatal(err)
	}

	var changed []string
	var mu sync.Mutex
	onChange := func(name string) {
		mu.Lock()
		changed = append(changed, name)
		mu.Unlock()
	}

	w := NewWatcher(dir, onChange, WithDebounce(5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// Debounce is far longer than the wait, so the callback must have come
	// from the remove path.
	if len(changed) != 1 || changed[0] != "animals" {
		t.Errorf("changed = %v, want [animals]", changed)
	}
}

func TestDatasetName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/animals.csv", "animals"},
		{"/data/animals.CSV", "animals"},
		{"/data/datasets_meta.yaml", ""},
		{"/data/round-one_labels.txt", ""},
		{"/data/animals", ""},
	}
	for _, tt := range tests {
		if got := datasetName(tt.path); got != tt.want {
			t.Errorf("datasetName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
