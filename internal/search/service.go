// Package search provides the k-nearest-neighbor similarity query service
// used to drive "find similar text" actions.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/embedding"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/vector"
)

// UnitGetter resolves a text unit by dataset and id.
type UnitGetter interface {
	GetByID(dataset string, id int64) (models.TextUnit, error)
}

// Service answers similarity queries against the dataset's embedding index.
type Service struct {
	manager  *vector.Manager
	embedder embedding.Embedder
	units    UnitGetter
	logger   *zap.Logger // optional
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a similarity search service.
func NewService(manager *vector.Manager, embedder embedding.Embedder, units UnitGetter, opts ...ServiceOption) *Service {
	s := &Service{manager: manager, embedder: embedder, units: units}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchByID returns the ids of the k nearest neighbors of an existing text
// unit, most similar first. The query item is a member of the index, so the
// top hit is its own exact match (similarity 1.0) and is dropped; the result
// holds at most min(k, cardinality-1) ids.
func (s *Service) SearchByID(ctx context.Context, dataset string, id int64, k int) ([]int64, error) {
	unit, err := s.units.GetByID(dataset, id)
	if err != nil {
		return nil, err
	}
	results, err := s.query(ctx, dataset, unit.Text, k+1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []int64{}, nil
	}
	// The first hit is the self-match; when duplicate texts tie at 1.0 the
	// index's insertion order decides which twin goes, matching the query
	// being a member of the index.
	out := make([]int64, 0, len(results)-1)
	for _, r := range results[1:] {
		out = append(out, r.ID)
	}
	if s.logger != nil {
		s.logger.Debug("similarity search",
			zap.String("dataset", dataset), zap.Int64("id", id), zap.Int("hits", len(out)))
	}
	return out, nil
}

// SearchText returns the ids of the k nearest neighbors of an ad hoc query
// string. No self-match is assumed, so no hit is dropped.
func (s *Service) SearchText(ctx context.Context, dataset, text string, k int) ([]int64, error) {
	results, err := s.query(ctx, dataset, text, k)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out, nil
}

func (s *Service) query(ctx context.Context, dataset, text string, k int) ([]vector.Result, error) {
	idx, err := s.manager.Get(dataset)
	if err != nil {
		return nil, err
	}
	if idx.Size() == 0 {
		return nil, fmt.Errorf("dataset %q: %w", dataset, models.ErrIndexEmpty)
	}
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return idx.Search(queryVec, k)
}
