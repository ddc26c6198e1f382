package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/fuda/internal/models"
)

func TestWriteUnits_JSON(t *testing.T) {
	units := []models.TextUnit{
		{ID: 0, Text: "hello world", Label: models.StringPtr("greet")},
		{ID: 1, Text: "goodbye moon"},
	}
	var buf bytes.Buffer
	if err := WriteUnits(&buf, units, OutputJSON); err != nil {
		t.Fatalf("WriteUnits(json): %v", err)
	}
	var decoded []models.TextUnit
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != 0 || decoded[0].Label == nil || *decoded[0].Label != "greet" {
		t.Errorf("decoded units: %+v", decoded)
	}
	if decoded[1].Label != nil {
		t.Errorf("unlabeled unit decoded with label %q", *decoded[1].Label)
	}
}

func TestWriteUnits_Text(t *testing.T) {
	units := []models.TextUnit{
		{ID: 7, Text: "hello world"},
	}
	var buf bytes.Buffer
	if err := WriteUnits(&buf, units, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 rows") || !strings.Contains(out, "hello world") {
		t.Errorf("text output: %q", out)
	}
}

func TestWriteDatasets_Text(t *testing.T) {
	datasets := []*models.Dataset{
		{Name: "greetings", Size: 3, TextColumn: "text", Description: "demo"},
	}
	var buf bytes.Buffer
	if err := WriteDatasets(&buf, datasets, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "greetings") || !strings.Contains(out, "text=text") {
		t.Errorf("text output: %q", out)
	}
}
