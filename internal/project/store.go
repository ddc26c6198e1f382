// Package project manages annotation projects: a derived label column over a
// dataset, project metadata, and the project's persisted label values.
//
// Persisted layout under the data directory:
//
//	projects_meta.yaml    append-only project -> {dataset, labels, progress}
//	{project}_labels.txt  ordered, newline-delimited label values
//
// Label columns live on the owning dataset's CSV as {project}_label.
package project

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fuda/internal/dataset"
	"github.com/hyperjump/fuda/internal/models"
)

const metaFile = "projects_meta.yaml"

// Store persists projects on top of a dataset store. Writes are full-file
// read-modify-write with a single-writer assumption; concurrent external
// writers are out of scope.
type Store struct {
	datasets *dataset.Store
	logger   *zap.Logger // optional
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a project store over the given dataset store.
func NewStore(datasets *dataset.Store, opts ...StoreOption) *Store {
	s := &Store{datasets: datasets}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create derives a new project over a dataset. When sourceLabelColumn is
// non-empty its values seed the new {project}_label column; otherwise all
// labels start unset. Returns the project and the full row set as the
// initial primary view payload.
func (s *Store) Create(datasetName, projectName, sourceLabelColumn string) (*models.Project, []models.TextUnit, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, nil, err
	}
	if _, ok := meta[projectName]; ok {
		return nil, nil, fmt.Errorf("project %q: %w", projectName, models.ErrNameConflict)
	}
	ds, err := s.datasets.Get(datasetName)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := s.datasets.ReadTable(datasetName)
	if err != nil {
		return nil, nil, err
	}

	proj := &models.Project{
		Name:     projectName,
		Dataset:  datasetName,
		Labels:   1,
		Progress: 0,
	}
	labelCol := proj.LabelColumn()
	if sourceLabelColumn != "" && !tbl.HasColumn(sourceLabelColumn) {
		return nil, nil, fmt.Errorf("label source column %q: %w", sourceLabelColumn, models.ErrNotFound)
	}
	if !tbl.HasColumn(labelCol) {
		tbl.Columns = append(tbl.Columns, labelCol)
	}
	for _, rec := range tbl.Records {
		if sourceLabelColumn != "" {
			rec[labelCol] = rec[sourceLabelColumn]
		} else {
			rec[labelCol] = ""
		}
	}
	if err := s.datasets.WriteTable(datasetName, tbl); err != nil {
		return nil, nil, err
	}
	if err := s.appendMeta(projectName, proj); err != nil {
		return nil, nil, err
	}

	units, err := dataset.UnitsFromRecords(tbl.Records, ds.TextColumn, labelCol)
	if err != nil {
		return nil, nil, err
	}
	if s.logger != nil {
		s.logger.Info("project created",
			zap.String("project", projectName),
			zap.String("dataset", datasetName),
			zap.String("source_column", sourceLabelColumn))
	}
	return proj, units, nil
}

// Load resolves a project to its dataset name and text column.
func (s *Store) Load(projectName string) (datasetName, textColumn string, err error) {
	proj, err := s.Get(projectName)
	if err != nil {
		return "", "", err
	}
	ds, err := s.datasets.Get(proj.Dataset)
	if err != nil {
		return "", "", err
	}
	return proj.Dataset, ds.TextColumn, nil
}

// Get returns project metadata by name.
func (s *Store) Get(projectName string) (*models.Project, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	proj, ok := meta[projectName]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", projectName, models.ErrNotFound)
	}
	proj.Name = projectName
	return proj, nil
}

// Units returns the project's full row set with current label values.
func (s *Store) Units(projectName string) ([]models.TextUnit, error) {
	proj, err := s.Get(projectName)
	if err != nil {
		return nil, err
	}
	ds, err := s.datasets.Get(proj.Dataset)
	if err != nil {
		return nil, err
	}
	tbl, err := s.datasets.ReadTable(proj.Dataset)
	if err != nil {
		return nil, err
	}
	return dataset.UnitsFromRecords(tbl.Records, ds.TextColumn, proj.LabelColumn())
}

// SaveLabelUpdates applies (id, label) assignments to the backing dataset
// file: read all rows, patch by id, rewrite the whole file. Not
// transactional; racing writers silently clobber each other (documented
// limitation).
func (s *Store) SaveLabelUpdates(projectName string, updates []models.LabelUpdate) error {
	proj, err := s.Get(projectName)
	if err != nil {
		return err
	}
	tbl, err := s.datasets.ReadTable(proj.Dataset)
	if err != nil {
		return err
	}
	labelCol := proj.LabelColumn()
	byID := make(map[string]map[string]string, tbl.NumRows())
	for _, rec := range tbl.Records {
		byID[rec[models.IDColumn]] = rec
	}
	for _, u := range updates {
		rec, ok := byID[strconv.FormatInt(u.ID, 10)]
		if !ok {
			return fmt.Errorf("project %q id %d: %w", projectName, u.ID, models.ErrNotFound)
		}
		if u.Label != nil {
			rec[labelCol] = *u.Label
		} else {
			rec[labelCol] = ""
		}
	}
	if err := s.datasets.WriteTable(proj.Dataset, tbl); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("label updates saved",
			zap.String("project", projectName), zap.Int("updates", len(updates)))
	}
	return nil
}

// SaveProjectColumns writes the label values of every given unit back to the
// dataset file, leaving rows not present in units untouched.
func (s *Store) SaveProjectColumns(projectName string, units []models.TextUnit) error {
	updates := make([]models.LabelUpdate, len(units))
	for i, u := range units {
		updates[i] = models.LabelUpdate{ID: u.ID, Label: u.Label}
	}
	return s.SaveLabelUpdates(projectName, updates)
}

// labelsPath returns the label file path for a project.
func (s *Store) labelsPath(projectName string) string {
	return filepath.Join(s.datasets.DataDir(), projectName+"_labels.txt")
}

// SaveLabels persists the registry's label values, one per line, preserving
// order (the file defines the registry's canonical order).
func (s *Store) SaveLabels(projectName string, labels []string) error {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.labelsPath(projectName), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write label file: %w", err)
	}
	return nil
}

// LoadLabels reads the persisted label values in order. A missing file
// yields an empty list, not an error.
func (s *Store) LoadLabels(projectName string) ([]string, error) {
	f, err := os.Open(s.labelsPath(projectName))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read label file: %w", err)
	}
	defer f.Close()
	labels := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	return labels, nil
}

func (s *Store) metaPath() string {
	return filepath.Join(s.datasets.DataDir(), metaFile)
}

// loadMeta reads the project metadata file; a missing file yields an empty map.
func (s *Store) loadMeta() (map[string]*models.Project, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*models.Project{}, nil
		}
		return nil, fmt.Errorf("read project metadata: %w", err)
	}
	meta := map[string]*models.Project{}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse project metadata: %w", err)
	}
	return meta, nil
}

// appendMeta appends a one-entry YAML document for projectName. Names are
// unique (Create rejects conflicts), so the file never holds duplicate keys.
func (s *Store) appendMeta(projectName string, proj *models.Project) error {
	entry, err := yaml.Marshal(map[string]*models.Project{projectName: proj})
	if err != nil {
		return fmt.Errorf("marshal project metadata: %w", err)
	}
	f, err := os.OpenFile(s.metaPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open project metadata: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(entry); err != nil {
		return fmt.Errorf("append project metadata: %w", err)
	}
	return nil
}
