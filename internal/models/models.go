// Package models defines core data structures for datasets, projects,
// text units, and annotation views.
package models

// IDColumn is the reserved column holding the stable row ID.
const IDColumn = "id"

// LabelColumnSuffix marks columns derived from annotation projects.
const LabelColumnSuffix = "_label"

// Dataset describes a persisted tabular dataset.
type Dataset struct {
	Name        string `json:"name" yaml:"-"`
	Size        int    `json:"size" yaml:"size"`
	Description string `json:"description" yaml:"description"`
	TextColumn  string `json:"text_column" yaml:"text_column"`
}

// Project is an annotation project: a label column derived over a dataset.
type Project struct {
	Name     string `json:"name" yaml:"-"`
	Dataset  string `json:"dataset" yaml:"dataset"`
	Labels   int    `json:"labels" yaml:"labels"`
	Progress int    `json:"progress" yaml:"progress"`
}

// LabelColumn returns the dataset column holding this project's labels.
func (p *Project) LabelColumn() string {
	return p.Name + LabelColumnSuffix
}

// TextUnit is the unit of annotation. ID is immutable and unique within
// its dataset. A nil Label means unlabeled.
type TextUnit struct {
	ID    int64   `json:"id"`
	Text  string  `json:"text"`
	Label *string `json:"label"`
}

// LabelUpdate is a single (id, label) assignment to persist.
type LabelUpdate struct {
	ID    int64   `json:"id"`
	Label *string `json:"label"`
}

// ColumnCardinality pairs a column name with its unique value count.
type ColumnCardinality struct {
	Column string `json:"column"`
	Unique int    `json:"unique"`
}

// LabelCardView is the details view of the currently selected row.
type LabelCardView struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	LabelText string `json:"label_text"`
}

// Table is an ordered tabular payload: column order is preserved for CSV
// round-trips, records hold cell values by column name.
type Table struct {
	Columns []string
	Records []map[string]string
}

// NumRows returns the number of records.
func (t *Table) NumRows() int {
	return len(t.Records)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Records: make([]map[string]string, len(t.Records)),
	}
	for i, rec := range t.Records {
		cp := make(map[string]string, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.Records[i] = cp
	}
	return out
}
