// Package dataset provides CRUD over persisted tabular datasets and their metadata.
//
// Persisted layout under the data directory:
//
//	{name}.csv          row table including the synthesized id column
//	datasets_meta.yaml  append-only name -> {size, description, text_column}
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fuda/internal/models"
)

const metaFile = "datasets_meta.yaml"

// Store persists datasets as flat CSV files plus a YAML metadata file.
type Store struct {
	dataDir string
	logger  *zap.Logger // optional; when set, logs debug events
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a dataset store rooted at dataDir, creating it if needed.
func NewStore(dataDir string, opts ...StoreOption) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dataDir: dataDir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DataDir returns the store's root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// CSVPath returns the row-table path for a dataset name.
func (s *Store) CSVPath(name string) string {
	return filepath.Join(s.dataDir, name+".csv")
}

// Create persists rows and metadata for a new dataset. The name must be
// unused (models.ErrNameConflict otherwise). When rows lack an id column,
// sequential ids starting at 0 are synthesized from row order.
func (s *Store) Create(rows *models.Table, name, description, textColumn string) (*models.Dataset, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	if _, ok := meta[name]; ok {
		return nil, fmt.Errorf("dataset %q: %w", name, models.ErrNameConflict)
	}
	if !rows.HasColumn(textColumn) {
		return nil, fmt.Errorf("dataset %q has no column %q: %w", name, textColumn, models.ErrNotFound)
	}

	tbl := rows.Clone()
	if !tbl.HasColumn(models.IDColumn) {
		tbl.Columns = append([]string{models.IDColumn}, tbl.Columns...)
		for i, rec := range tbl.Records {
			rec[models.IDColumn] = strconv.Itoa(i)
		}
	}

	if err := writeCSVTable(s.CSVPath(name), tbl); err != nil {
		return nil, fmt.Errorf("write dataset rows: %w", err)
	}
	ds := &models.Dataset{
		Name:        name,
		Size:        tbl.NumRows(),
		Description: description,
		TextColumn:  textColumn,
	}
	if err := s.appendMeta(name, ds); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("dataset created",
			zap.String("name", name), zap.Int("rows", ds.Size), zap.String("text_column", textColumn))
	}
	return ds, nil
}

// Get returns dataset metadata by name.
func (s *Store) Get(name string) (*models.Dataset, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	ds, ok := meta[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, models.ErrNotFound)
	}
	ds.Name = name
	return ds, nil
}

// List returns all known datasets in name order.
func (s *Store) List() ([]*models.Dataset, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*models.Dataset, 0, len(names))
	for _, name := range names {
		ds := meta[name]
		ds.Name = name
		out = append(out, ds)
	}
	return out, nil
}

// ColumnCardinalities returns each column's unique value count, in column
// order, excluding derived label columns. Used to pick a label-donor column.
func (s *Store) ColumnCardinalities(name string) ([]models.ColumnCardinality, error) {
	tbl, err := s.ReadTable(name)
	if err != nil {
		return nil, err
	}
	out := make([]models.ColumnCardinality, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		if strings.HasSuffix(col, models.LabelColumnSuffix) {
			continue
		}
		seen := make(map[string]struct{})
		for _, rec := range tbl.Records {
			seen[rec[col]] = struct{}{}
		}
		out = append(out, models.ColumnCardinality{Column: col, Unique: len(seen)})
	}
	return out, nil
}

// FetchSlice returns a contiguous slice of text units in stored row order.
// An out-of-range start yields an empty slice, not an error. labelColumn may
// be empty; when set, label values are projected from it.
func (s *Store) FetchSlice(name string, labelColumn string, start, size int) ([]models.TextUnit, error) {
	ds, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	tbl, err := s.ReadTable(name)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if start >= tbl.NumRows() {
		return []models.TextUnit{}, nil
	}
	end := start + size
	if size <= 0 || end > tbl.NumRows() {
		end = tbl.NumRows()
	}
	return UnitsFromRecords(tbl.Records[start:end], ds.TextColumn, labelColumn)
}

// GetByID returns the text unit with the given id, or models.ErrNotFound.
func (s *Store) GetByID(name string, id int64) (models.TextUnit, error) {
	ds, err := s.Get(name)
	if err != nil {
		return models.TextUnit{}, err
	}
	tbl, err := s.ReadTable(name)
	if err != nil {
		return models.TextUnit{}, err
	}
	want := strconv.FormatInt(id, 10)
	for _, rec := range tbl.Records {
		if rec[models.IDColumn] == want {
			units, err := UnitsFromRecords([]map[string]string{rec}, ds.TextColumn, "")
			if err != nil {
				return models.TextUnit{}, err
			}
			return units[0], nil
		}
	}
	return models.TextUnit{}, fmt.Errorf("dataset %q id %d: %w", name, id, models.ErrNotFound)
}

// ReadTable loads the full row table for a dataset.
func (s *Store) ReadTable(name string) (*models.Table, error) {
	tbl, err := readCSVTable(s.CSVPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset %q: %w", name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read dataset %q: %w", name, err)
	}
	return tbl, nil
}

// WriteTable rewrites the full row table for a dataset. Full-file
// read-modify-write; concurrent writers are out of scope.
func (s *Store) WriteTable(name string, tbl *models.Table) error {
	if err := writeCSVTable(s.CSVPath(name), tbl); err != nil {
		return fmt.Errorf("write dataset %q: %w", name, err)
	}
	return nil
}

// Rows returns every row's id and text value in stored order. This is the
// row source index builds consume.
func (s *Store) Rows(name, textColumn string) ([]int64, []string, error) {
	tbl, err := s.ReadTable(name)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, tbl.NumRows())
	texts := make([]string, tbl.NumRows())
	for i, rec := range tbl.Records {
		id, err := strconv.ParseInt(rec[models.IDColumn], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad row id %q: %w", rec[models.IDColumn], err)
		}
		ids[i] = id
		texts[i] = rec[textColumn]
	}
	return ids, texts, nil
}

// TextRows is Rows with the text column resolved from the dataset's own
// metadata.
func (s *Store) TextRows(name string) ([]int64, []string, error) {
	ds, err := s.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return s.Rows(name, ds.TextColumn)
}

// UnitsFromRecords projects records onto text units. An empty label cell
// maps to a nil label (CSV cannot hold an explicit null).
func UnitsFromRecords(records []map[string]string, textColumn, labelColumn string) ([]models.TextUnit, error) {
	units := make([]models.TextUnit, 0, len(records))
	for _, rec := range records {
		id, err := strconv.ParseInt(rec[models.IDColumn], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad row id %q: %w", rec[models.IDColumn], err)
		}
		unit := models.TextUnit{ID: id, Text: rec[textColumn]}
		if labelColumn != "" {
			if v := rec[labelColumn]; v != "" {
				unit.Label = models.StringPtr(v)
			}
		}
		units = append(units, unit)
	}
	return units, nil
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dataDir, metaFile)
}

// loadMeta reads the metadata file; a missing file yields an empty map.
func (s *Store) loadMeta() (map[string]*models.Dataset, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*models.Dataset{}, nil
		}
		return nil, fmt.Errorf("read dataset metadata: %w", err)
	}
	meta := map[string]*models.Dataset{}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse dataset metadata: %w", err)
	}
	return meta, nil
}

// appendMeta appends a one-entry YAML document for name. Names are unique
// (Create rejects conflicts), so the file never holds duplicate keys.
func (s *Store) appendMeta(name string, ds *models.Dataset) error {
	entry, err := yaml.Marshal(map[string]*models.Dataset{name: ds})
	if err != nil {
		return fmt.Errorf("marshal dataset metadata: %w", err)
	}
	f, err := os.OpenFile(s.metaPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open dataset metadata: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(entry); err != nil {
		return fmt.Errorf("append dataset metadata: %w", err)
	}
	return nil
}
