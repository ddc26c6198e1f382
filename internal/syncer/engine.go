// Package syncer reconciles the primary (full table) and secondary
// (similarity result) annotation views under the four trigger types:
// row selection, label-set change, row edit, and dataset reload.
package syncer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/label"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/project"
)

// Source names the view a row edit originated from.
type Source string

const (
	// SourcePrimary marks edits made in the primary table.
	SourcePrimary Source = "primary"
	// SourceSecondary marks edits made in the similarity-result table.
	SourceSecondary Source = "secondary"
)

// State is the engine's lifecycle state.
type State string

const (
	// StateUnloaded means no project is loaded.
	StateUnloaded State = "unloaded"
	// StateLoaded means a project's rows fill the primary view.
	StateLoaded State = "loaded"
	// StateSelected means a row is selected and the secondary view holds
	// its similarity neighbors.
	StateSelected State = "selected"
)

// Searcher answers similarity queries for a text unit of a dataset.
type Searcher interface {
	SearchByID(ctx context.Context, dataset string, id int64, k int) ([]int64, error)
}

// Engine holds the session-scoped view state of one annotation project.
// Triggers are dispatched strictly sequentially: the mutex guarantees no
// trigger reads a view while another is still mutating it, and a started
// trigger always runs to completion.
type Engine struct {
	projects *project.Store
	searcher Searcher
	k        int
	logger   *zap.Logger // optional

	mu          sync.Mutex
	state       State
	projectName string
	dataset     string
	textColumn  string
	labels      []string
	primary     []models.TextUnit
	secondary   []models.TextUnit
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an unloaded engine. k is the similarity neighbor count
// per selection.
func NewEngine(projects *project.Store, searcher Searcher, k int, opts ...EngineOption) *Engine {
	e := &Engine{
		projects: projects,
		searcher: searcher,
		k:        k,
		state:    StateUnloaded,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reload is the dataset-reload trigger: the primary view becomes payload,
// the secondary view empties, and the label registry is reloaded from
// persisted storage for the project. Any state transitions to Loaded.
func (e *Engine) Reload(projectName string, payload []models.TextUnit) error {
	datasetName, textColumn, err := e.projects.Load(projectName)
	if err != nil {
		return err
	}
	labels, err := e.projects.LoadLabels(projectName)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.projectName = projectName
	e.dataset = datasetName
	e.textColumn = textColumn
	e.labels = labels
	e.primary = copyUnits(payload)
	e.secondary = nil
	e.state = StateLoaded
	if e.logger != nil {
		e.logger.Info("project loaded into views",
			zap.String("project", projectName),
			zap.String("dataset", datasetName),
			zap.Int("rows", len(payload)))
	}
	return nil
}

// Select is the selection trigger: it runs a similarity search over the
// selected row's text and rebuilds the secondary view as the matching rows
// sliced out of the primary view, carrying the current in-memory labels.
// Returns the details view of the selected row and the new secondary view.
func (e *Engine) Select(ctx context.Context, rowID int64) (*models.LabelCardView, []models.TextUnit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnloaded {
		return nil, nil, fmt.Errorf("no project loaded: %w", models.ErrNotFound)
	}
	selected, ok := findUnit(e.primary, rowID)
	if !ok {
		return nil, nil, fmt.Errorf("row %d not in primary view: %w", rowID, models.ErrNotFound)
	}

	ids, err := e.searcher.SearchByID(ctx, e.dataset, rowID, e.k)
	if err != nil {
		return nil, nil, err
	}
	e.secondary = sliceByIDs(e.primary, ids)
	e.state = StateSelected

	details := &models.LabelCardView{ID: selected.ID, Text: selected.Text}
	if selected.Label != nil {
		details.LabelText = *selected.Label
	}
	return details, copyUnits(e.secondary), nil
}

// LabelSetChange is the label-set-change trigger: the registry becomes
// validLabels and every unit in either view whose label fell out of the set
// is cleared. The state is unchanged.
func (e *Engine) LabelSetChange(validLabels []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labels = append([]string(nil), validLabels...)
	label.CascadeClear([][]models.TextUnit{e.primary, e.secondary}, e.labels)
}

// AddLabel adds a label to the registry. Adding a present or empty label is
// a no-op; no cascade is needed since adding cannot invalidate view labels.
func (e *Engine) AddLabel(value string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labels = label.Add(e.labels, value)
	return append([]string(nil), e.labels...)
}

// RemoveLabel removes a label from the registry and cascades the clear over
// both views.
func (e *Engine) RemoveLabel(value string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labels = label.Remove(e.labels, value)
	label.CascadeClear([][]models.TextUnit{e.primary, e.secondary}, e.labels)
	return append([]string(nil), e.labels...)
}

// RowEdit is the row-edit trigger. rows is the full new content of the
// edited view. Exactly one direction is synchronized, chosen by source:
//
//   - SourcePrimary: the primary view is authoritative; the secondary view
//     is recomputed as the id-based subset of the new primary.
//   - SourceSecondary: the secondary labels are merged into the primary by
//     id. Label values are pointers, so an explicit clear (nil) is a real
//     value and overwrites the primary label like any other; clears are
//     never skipped as "absent".
func (e *Engine) RowEdit(source Source, rows []models.TextUnit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnloaded {
		return fmt.Errorf("no project loaded: %w", models.ErrNotFound)
	}

	switch source {
	case SourcePrimary:
		e.primary = copyUnits(rows)
		secondaryIDs := make([]int64, len(e.secondary))
		for i, u := range e.secondary {
			secondaryIDs[i] = u.ID
		}
		e.secondary = sliceByIDs(e.primary, secondaryIDs)
	case SourceSecondary:
		e.secondary = copyUnits(rows)
		byID := make(map[int64]*string, len(e.secondary))
		for _, u := range e.secondary {
			byID[u.ID] = u.Label
		}
		for i := range e.primary {
			if lbl, ok := byID[e.primary[i].ID]; ok {
				e.primary[i].Label = lbl
			}
		}
	default:
		return fmt.Errorf("unknown edit source %q", source)
	}
	return nil
}

// EditLabel applies a single label edit to a view and synchronizes via
// RowEdit. value distinguishes an explicit clear (present, nil) from an
// untouched field (absent, which leaves the row unchanged).
func (e *Engine) EditLabel(source Source, rowID int64, value models.OptionalString) error {
	if !value.Present {
		return nil
	}
	e.mu.Lock()
	view := e.primary
	if source == SourceSecondary {
		view = e.secondary
	}
	rows := copyUnits(view)
	found := false
	for i := range rows {
		if rows[i].ID == rowID {
			rows[i].Label = value.Value
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return fmt.Errorf("row %d not in %s view: %w", rowID, source, models.ErrNotFound)
	}
	return e.RowEdit(source, rows)
}

// Save persists the current in-memory state: every primary label value and
// the registry contents. This is the explicit save action; triggers alone
// never write to disk.
func (e *Engine) Save() error {
	e.mu.Lock()
	projectName := e.projectName
	units := copyUnits(e.primary)
	labels := append([]string(nil), e.labels...)
	state := e.state
	e.mu.Unlock()
	if state == StateUnloaded {
		return fmt.Errorf("no project loaded: %w", models.ErrNotFound)
	}
	if err := e.projects.SaveProjectColumns(projectName, units); err != nil {
		return err
	}
	if err := e.projects.SaveLabels(projectName, labels); err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Info("project saved",
			zap.String("project", projectName),
			zap.Int("rows", len(units)), zap.Int("labels", len(labels)))
	}
	return nil
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Project returns the loaded project name.
func (e *Engine) Project() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projectName
}

// Labels returns a copy of the current registry contents.
func (e *Engine) Labels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.labels...)
}

// Primary returns a copy of the primary view.
func (e *Engine) Primary() []models.TextUnit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyUnits(e.primary)
}

// Secondary returns a copy of the secondary view.
func (e *Engine) Secondary() []models.TextUnit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyUnits(e.secondary)
}

func findUnit(units []models.TextUnit, id int64) (models.TextUnit, bool) {
	for _, u := range units {
		if u.ID == id {
			return u, true
		}
	}
	return models.TextUnit{}, false
}

// sliceByIDs projects units onto the given id order, skipping unknown ids.
func sliceByIDs(units []models.TextUnit, ids []int64) []models.TextUnit {
	byID := make(map[int64]models.TextUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	out := make([]models.TextUnit, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

func copyUnits(units []models.TextUnit) []models.TextUnit {
	return append([]models.TextUnit(nil), units...)
}
