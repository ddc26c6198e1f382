package keyword

import (
	"context"
	"testing"
)

type fakeRows struct {
	ids   []int64
	texts []string
}

func (f *fakeRows) TextRows(string) ([]int64, []string, error) {
	return f.ids, f.texts, nil
}

func newTestFilter(t *testing.T, rows *fakeRows) *Filter {
	t.Helper()
	f, err := NewFilter(t.TempDir(), rows)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestMatch(t *testing.T) {
	rows := &fakeRows{
		ids:   []int64{0, 1, 2},
		texts: []string{"the quick brown fox", "lazy dog sleeps", "quick silver surfer"},
	}
	f := newTestFilter(t, rows)

	ids, err := f.Match(context.Background(), "animals", "quick", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("hits = %v, want rows 0 and 2", ids)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[0] || !seen[2] {
		t.Errorf("hits = %v, want rows 0 and 2", ids)
	}
}

func TestMatchEmptyQuery(t *testing.T) {
	f := newTestFilter(t, &fakeRows{ids: []int64{0}, texts: []string{"anything"}})
	ids, err := f.Match(context.Background(), "animals", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("empty query returned %v", ids)
	}
}

func TestMatchLimit(t *testing.T) {
	rows := &fakeRows{
		ids:   []int64{0, 1, 2},
		texts: []string{"alpha beta", "alpha gamma", "alpha delta"},
	}
	f := newTestFilter(t, rows)
	ids, err := f.Match(context.Background(), "animals", "alpha", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("hits = %d, want limit 2", len(ids))
	}
}

func TestInvalidateRebuilds(t *testing.T) {
	rows := &fakeRows{ids: []int64{0}, texts: []string{"old text"}}
	f := newTestFilter(t, rows)

	ids, err := f.Match(context.Background(), "animals", "old", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("hits = %v, want row 0", ids)
	}

	rows.texts = []string{"new text"}
	if err := f.Invalidate("animals"); err != nil {
		t.Fatal(err)
	}

	ids, err = f.Match(context.Background(), "animals", "old", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("stale hits after invalidate: %v", ids)
	}
	ids, err = f.Match(context.Background(), "animals", "new", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("rebuilt index missed new text: %v", ids)
	}
}
