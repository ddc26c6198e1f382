package project

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/fuda/internal/dataset"
	"github.com/hyperjump/fuda/internal/models"
)

func newTestStores(t *testing.T) (*dataset.Store, *Store) {
	t.Helper()
	ds, err := dataset.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tbl := &models.Table{
		Columns: []string{"text", "topic"},
		Records: []map[string]string{
			{"text": "hello world", "topic": "greet"},
			{"text": "hi earth", "topic": "greet"},
			{"text": "goodbye moon", "topic": "farewell"},
		},
	}
	if _, err := ds.Create(tbl, "ds1", "", "text"); err != nil {
		t.Fatal(err)
	}
	return ds, NewStore(ds)
}

func TestStore_CreateAndLoad(t *testing.T) {
	_, store := newTestStores(t)

	proj, units, err := store.Create("ds1", "proj1", "")
	if err != nil {
		t.Fatal(err)
	}
	if proj.LabelColumn() != "proj1_label" {
		t.Errorf("unexpected label column %q", proj.LabelColumn())
	}
	if len(units) != 3 {
		t.Fatalf("expected full row set, got %d units", len(units))
	}
	for _, u := range units {
		if u.Label != nil {
			t.Errorf("labels should start unset, got %v for id %d", *u.Label, u.ID)
		}
	}

	dsName, textCol, err := store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if dsName != "ds1" || textCol != "text" {
		t.Errorf("load resolved to %q/%q", dsName, textCol)
	}
}

func TestStore_CreateConflictAndNotFound(t *testing.T) {
	_, store := newTestStores(t)
	if _, _, err := store.Create("ds1", "proj1", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Create("ds1", "proj1", ""); !errors.Is(err, models.ErrNameConflict) {
		t.Errorf("expected ErrNameConflict, got %v", err)
	}
	if _, _, err := store.Create("nope", "proj2", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown dataset, got %v", err)
	}
	if _, _, err := store.Load("nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestStore_CreateInheritsSourceColumn(t *testing.T) {
	_, store := newTestStores(t)
	_, units, err := store.Create("ds1", "proj1", "topic")
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Label == nil || *units[0].Label != "greet" {
		t.Errorf("expected inherited label greet, got %v", units[0].Label)
	}
	if units[2].Label == nil || *units[2].Label != "farewell" {
		t.Errorf("expected inherited label farewell, got %v", units[2].Label)
	}
}

func TestStore_SaveLabelUpdates(t *testing.T) {
	_, store := newTestStores(t)
	if _, _, err := store.Create("ds1", "proj1", ""); err != nil {
		t.Fatal(err)
	}
	updates := []models.LabelUpdate{
		{ID: 0, Label: models.StringPtr("A")},
		{ID: 2, Label: models.StringPtr("B")},
	}
	if err := store.SaveLabelUpdates("proj1", updates); err != nil {
		t.Fatal(err)
	}
	units, err := store.Units("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if units[0].Label == nil || *units[0].Label != "A" {
		t.Errorf("id 0: expected A, got %v", units[0].Label)
	}
	if units[1].Label != nil {
		t.Errorf("id 1: expected unset, got %v", *units[1].Label)
	}

	// Explicit clear persists as an empty cell.
	if err := store.SaveLabelUpdates("proj1", []models.LabelUpdate{{ID: 0, Label: nil}}); err != nil {
		t.Fatal(err)
	}
	units, _ = store.Units("proj1")
	if units[0].Label != nil {
		t.Errorf("id 0: expected cleared label, got %v", *units[0].Label)
	}

	err = store.SaveLabelUpdates("proj1", []models.LabelUpdate{{ID: 99, Label: nil}})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestStore_LabelsRoundTrip(t *testing.T) {
	_, store := newTestStores(t)

	labels, err := store.LoadLabels("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 0 {
		t.Errorf("missing file should yield empty list, got %v", labels)
	}

	want := []string{"B", "A", "C"}
	if err := store.SaveLabels("proj1", want); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadLabels("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("label order must survive the round-trip: got %v", got)
	}
}
