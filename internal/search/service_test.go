package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/vector"
	"github.com/hyperjump/fuda/pkg/utils"
)

// cannedEmbedder maps known texts to fixed vectors so neighbor geometry is
// controlled exactly; unknown texts are an error.
type cannedEmbedder struct {
	vectors map[string][]float32
}

func (c *cannedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := c.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no canned vector for %q", text)
	}
	out := make([]float32, len(v))
	copy(out, v)
	utils.NormalizeL2(out)
	return out, nil
}

func (c *cannedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *cannedEmbedder) Dimensions() int { return 3 }
func (c *cannedEmbedder) Close() error    { return nil }

type unitRows struct {
	units []models.TextUnit
}

func (u *unitRows) Rows(dataset, textColumn string) ([]int64, []string, error) {
	ids := make([]int64, len(u.units))
	texts := make([]string, len(u.units))
	for i, unit := range u.units {
		ids[i] = unit.ID
		texts[i] = unit.Text
	}
	return ids, texts, nil
}

func (u *unitRows) GetByID(dataset string, id int64) (models.TextUnit, error) {
	for _, unit := range u.units {
		if unit.ID == id {
			return unit, nil
		}
	}
	return models.TextUnit{}, fmt.Errorf("id %d: %w", id, models.ErrNotFound)
}

// greetings is the canonical scenario: "hi earth" lies closer to
// "hello world" than "goodbye moon" does.
func greetings() (*unitRows, *cannedEmbedder) {
	rows := &unitRows{units: []models.TextUnit{
		{ID: 0, Text: "hello world"},
		{ID: 1, Text: "hi earth"},
		{ID: 2, Text: "goodbye moon"},
	}}
	emb := &cannedEmbedder{vectors: map[string][]float32{
		"hello world":  {1, 0, 0},
		"hi earth":     {0.9, 0.1, 0},
		"goodbye moon": {0, 0, 1},
	}}
	return rows, emb
}

func newTestService(t *testing.T) (*Service, *vector.Manager) {
	t.Helper()
	rows, emb := greetings()
	manager := vector.NewManager(t.TempDir(), t.TempDir(), emb, rows)
	return NewService(manager, emb, rows), manager
}

func TestService_SearchByID(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()
	if _, err := manager.Ensure(ctx, "ds1", "text"); err != nil {
		t.Fatal(err)
	}

	ids, err := svc.SearchByID(ctx, "ds1", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []int64{1}) {
		t.Errorf("expected [1], got %v", ids)
	}
}

func TestService_SearchByIDNeverReturnsSelf(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()
	if _, err := manager.Ensure(ctx, "ds1", "text"); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int64{0, 1, 2} {
		// k far beyond cardinality: result caps at cardinality-1.
		ids, err := svc.SearchByID(ctx, "ds1", id, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 2 {
			t.Errorf("id %d: expected 2 hits, got %v", id, ids)
		}
		for _, got := range ids {
			if got == id {
				t.Errorf("id %d: result contains the query item: %v", id, ids)
			}
		}
	}
}

func TestService_SearchTextKeepsAllHits(t *testing.T) {
	svc, manager := newTestService(t)
	ctx := context.Background()
	if _, err := manager.Ensure(ctx, "ds1", "text"); err != nil {
		t.Fatal(err)
	}

	// Ad hoc query equal to a member text: no drop, the exact match stays first.
	ids, err := svc.SearchText(ctx, "ds1", "hello world", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []int64{0, 1}) {
		t.Errorf("expected [0 1], got %v", ids)
	}
}

func TestService_SearchBeforeEnsure(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SearchByID(context.Background(), "ds1", 0, 1)
	if !errors.Is(err, models.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestService_SearchEmptyIndex(t *testing.T) {
	rows := &unitRows{}
	emb := &cannedEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	manager := vector.NewManager(t.TempDir(), t.TempDir(), emb, rows)
	ctx := context.Background()
	if _, err := manager.Ensure(ctx, "empty", "text"); err != nil {
		t.Fatal(err)
	}
	svc := NewService(manager, emb, rows)
	_, err := svc.SearchText(ctx, "empty", "q", 3)
	if !errors.Is(err, models.ErrIndexEmpty) {
		t.Errorf("expected ErrIndexEmpty, got %v", err)
	}
}
