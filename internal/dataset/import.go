package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/fuda/internal/models"
)

// ParseUpload decodes an uploaded file into a Table based on its extension:
// .csv, .tsv, or .xls/.xlsx. Parse failures surface models.ErrUnreadable so
// the caller can report them without treating them as internal errors.
func ParseUpload(filename string, content []byte) (*models.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseDelimited(content, ',')
	case ".tsv":
		return parseDelimited(content, '\t')
	case ".xls", ".xlsx":
		return parseExcel(content)
	default:
		return nil, fmt.Errorf("unsupported upload %q: %w", filename, models.ErrUnreadable)
	}
}

func parseDelimited(content []byte, sep rune) (*models.Table, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sep
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadable, err)
	}
	return tableFromRows(rows)
}

// parseExcel reads the first sheet of an Excel workbook.
func parseExcel(content []byte) (*models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", models.ErrUnreadable)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadable, err)
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*models.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", models.ErrUnreadable)
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
