// Package cli provides output formatting for the fuda command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteUnits writes text units to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteUnits(w io.Writer, units []models.TextUnit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(units)
	default:
		writeUnitsText(w, units)
		return nil
	}
}

func writeUnitsText(w io.Writer, units []models.TextUnit) {
	fmt.Fprintf(w, "\n%d rows\n\n", len(units))
	for _, u := range units {
		label := "-"
		if u.Label != nil {
			label = *u.Label
		}
		fmt.Fprintf(w, "%6d  %-20s %s\n", u.ID, label, utils.Truncate(u.Text, 120))
	}
	fmt.Fprintln(w)
}

// WriteDatasets writes the dataset listing to w in the given format.
func WriteDatasets(w io.Writer, datasets []*models.Dataset, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(datasets)
	default:
		fmt.Fprintf(w, "\n%d datasets\n\n", len(datasets))
		for _, ds := range datasets {
			fmt.Fprintf(w, "%-24s %6d rows  text=%s  %s\n",
				ds.Name, ds.Size, ds.TextColumn, utils.Truncate(ds.Description, 60))
		}
		fmt.Fprintln(w)
		return nil
	}
}

// PrintUnits prints text units to stdout in text format.
func PrintUnits(units []models.TextUnit) {
	_ = WriteUnits(os.Stdout, units, OutputText)
}
