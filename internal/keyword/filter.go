// Package keyword provides the Bleve-backed text filter over dataset rows.
package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

// unit is a bleve document: one dataset row's text cell.
type unit struct {
	Text string `json:"text"`
}

// RowSource yields the filterable rows of a dataset.
type RowSource interface {
	TextRows(dataset string) ([]int64, []string, error)
}

// Filter maintains one Bleve index per dataset and answers substring-style
// keyword queries against the text column. It backs the table filter box,
// not the similarity search.
type Filter struct {
	dir    string
	rows   RowSource
	logger *zap.Logger // optional

	mu   sync.Mutex
	open map[string]bleve.Index
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) FilterOption {
	return func(f *Filter) { f.logger = l }
}

// NewFilter creates a filter whose per-dataset indexes live under dir.
func NewFilter(dir string, rows RowSource, opts ...FilterOption) (*Filter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create filter index dir: %w", err)
	}
	f := &Filter{
		dir:  dir,
		rows: rows,
		open: make(map[string]bleve.Index),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Filter) indexPath(dataset string) string {
	return filepath.Join(f.dir, dataset+".filter")
}

// indexMapping indexes only the text field.
// The standard analyzer (lowercase + tokenize, no stemming) keeps filter
// behavior literal: "run" does not match "running".
func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping
	return im
}

// ensure opens or builds the index for dataset. Caller holds f.mu.
func (f *Filter) ensure(dataset string) (bleve.Index, error) {
	if idx, ok := f.open[dataset]; ok {
		return idx, nil
	}

	path := f.indexPath(dataset)
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open filter index: %w", openErr)
		}
		f.open[dataset] = idx
		return idx, nil
	}

	ids, texts, err := f.rows.TextRows(dataset)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create filter index: %w", err)
	}
	batch := idx.NewBatch()
	for i, id := range ids {
		if err := batch.Index(strconv.FormatInt(id, 10), unit{Text: texts[i]}); err != nil {
			idx.Close()
			return nil, fmt.Errorf("failed to index row %d: %w", id, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to commit filter batch: %w", err)
	}
	if f.logger != nil {
		f.logger.Info("filter index built",
			zap.String("dataset", dataset), zap.Int("rows", len(ids)))
	}
	f.open[dataset] = idx
	return idx, nil
}

// Match returns the row ids of dataset whose text matches query, best first,
// capped at limit. An empty query matches nothing.
func (f *Filter) Match(ctx context.Context, dataset, query string, limit int) ([]int64, error) {
	if query == "" {
		return nil, nil
	}
	f.mu.Lock()
	idx, err := f.ensure(dataset)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("filter search failed: %w", err)
	}
	out := make([]int64, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Invalidate closes and removes the index for dataset. The next Match
// rebuilds from the current rows.
func (f *Filter) Invalidate(dataset string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx, ok := f.open[dataset]; ok {
		idx.Close()
		delete(f.open, dataset)
	}
	if err := os.RemoveAll(f.indexPath(dataset)); err != nil {
		return fmt.Errorf("failed to remove filter index: %w", err)
	}
	return nil
}

// Close closes all open indexes.
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for name, idx := range f.open {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.open, name)
	}
	return firstErr
}
