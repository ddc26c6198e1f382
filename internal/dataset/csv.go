package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/hyperjump/fuda/internal/models"
)

// readCSVTable reads a CSV file into a Table. The first record is the header.
// Cells are kept as raw strings; empty cells stay empty (no NA coercion).
func readCSVTable(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return &models.Table{}, nil
	}
	tbl := &models.Table{
		Columns: rows[0],
		Records: make([]map[string]string, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		tbl.Records = append(tbl.Records, rec)
	}
	return tbl, nil
}

// writeCSVTable writes a Table to path, header first, preserving column order.
func writeCSVTable(path string, tbl *models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(tbl.Columns))
	for _, rec := range tbl.Records {
		for i, col := range tbl.Columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
