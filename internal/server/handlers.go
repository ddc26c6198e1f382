package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/dataset"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/syncer"
)

// maxUploadBytes caps dataset upload size (64 MiB).
const maxUploadBytes = 64 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDatasetCreate accepts a multipart upload: "file" holds the csv, tsv,
// xls, or xlsx content; "name", "text_column", and optional "description"
// come as form fields.
func (s *Server) handleDatasetCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	name := r.FormValue("name")
	textColumn := r.FormValue("text_column")
	description := r.FormValue("description")
	if name == "" || textColumn == "" {
		s.respondError(w, http.StatusBadRequest, "name and text_column are required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("dataset upload",
		zap.String("name", name), zap.String("filename", header.Filename))
	tbl, err := dataset.ParseUpload(header.Filename, content)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if !tbl.HasColumn(textColumn) {
		s.respondError(w, http.StatusBadRequest, "text_column not present in upload")
		return
	}
	ds, err := s.datasets.Create(tbl, name, description, textColumn)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ds)
}

func (s *Server) handleDatasetList(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"datasets": list})
}

func (s *Server) handleDatasetColumns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cards, err := s.datasets.ColumnCardinalities(name)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"columns": cards})
}

func (s *Server) handleDatasetSlice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	start := queryInt(r, "start", 0)
	size := queryInt(r, "size", s.config.Search.SliceSize)
	labelColumn := r.URL.Query().Get("label_column")

	units, err := s.datasets.FetchSlice(name, labelColumn, start, size)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"start": start,
		"units": units,
	})
}

func (s *Server) handleDatasetFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", s.config.Search.FilterLimit)

	ids, err := s.filter.Match(r.Context(), name, query, limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	units := make([]models.TextUnit, 0, len(ids))
	for _, id := range ids {
		unit, err := s.datasets.GetByID(name, id)
		if err != nil {
			continue
		}
		units = append(units, unit)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"units": units})
}

func (s *Server) handleIndexEnsure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ds, err := s.datasets.Get(name)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.manager.EnsureAsync(name, ds.TextColumn)
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"dataset": name,
		"status":  string(s.manager.Status(name)),
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.respondJSON(w, http.StatusOK, map[string]string{
		"dataset": name,
		"status":  string(s.manager.Status(name)),
	})
}

func (s *Server) handleIndexCancel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cancelled := s.manager.CancelBuild(name)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":   name,
		"cancelled": cancelled,
	})
}

type projectCreateRequest struct {
	Dataset           string `json:"dataset"`
	Name              string `json:"name"`
	SourceLabelColumn string `json:"source_label_column,omitempty"`
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req projectCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "dataset and name are required")
		return
	}
	proj, units, err := s.projects.Create(req.Dataset, req.Name, req.SourceLabelColumn)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"project": proj,
		"units":   units,
	})
}

func (s *Server) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	proj, err := s.projects.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, proj)
}

type searchRequest struct {
	Dataset string `json:"dataset"`
	RowID   *int64 `json:"row_id,omitempty"`
	Text    string `json:"text,omitempty"`
	K       int    `json:"k,omitempty"`
}

// handleSearch answers a similarity query either by row id (self-match
// dropped) or by free text.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" {
		s.respondError(w, http.StatusBadRequest, "dataset is required")
		return
	}
	k := req.K
	if k <= 0 {
		k = s.config.Search.SimilarityK
	}

	var (
		ids []int64
		err error
	)
	switch {
	case req.RowID != nil:
		ids, err = s.searcher.SearchByID(r.Context(), req.Dataset, *req.RowID, k)
	case req.Text != "":
		ids, err = s.searcher.SearchText(r.Context(), req.Dataset, req.Text, k)
	default:
		s.respondError(w, http.StatusBadRequest, "row_id or text is required")
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ids": ids})
}

type sessionCreateRequest struct {
	Project string `json:"project"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Project == "" {
		s.respondError(w, http.StatusBadRequest, "project is required")
		return
	}
	units, err := s.projects.Units(req.Project)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	engine := syncer.NewEngine(s.projects, s.searcher, s.config.Search.SimilarityK,
		syncer.WithLogger(s.logger))
	if err := engine.Reload(req.Project, units); err != nil {
		s.respondErr(w, err)
		return
	}
	id := s.sessions.add(engine)
	s.logger.Debug("session created",
		zap.String("session", id), zap.String("project", req.Project))
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"state":      engine.State(),
		"labels":     engine.Labels(),
		"primary":    engine.Primary(),
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*syncer.Engine, bool) {
	id := chi.URLParam(r, "id")
	engine, ok := s.sessions.get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return engine, true
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"project":   engine.Project(),
		"state":     engine.State(),
		"labels":    engine.Labels(),
		"primary":   engine.Primary(),
		"secondary": engine.Secondary(),
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.remove(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type selectRequest struct {
	RowID int64 `json:"row_id"`
}

func (s *Server) handleSessionSelect(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	details, secondary, err := engine.Select(r.Context(), req.RowID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"selected":  details,
		"secondary": secondary,
	})
}

type labelAddRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSessionLabelAdd(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	var req labelAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	labels := engine.AddLabel(req.Value)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"labels": labels})
}

func (s *Server) handleSessionLabelRemove(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	labels := engine.RemoveLabel(chi.URLParam(r, "value"))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"labels": labels})
}

type editRequest struct {
	Source string                `json:"source"`
	RowID  int64                 `json:"row_id"`
	Label  models.OptionalString `json:"label"`
}

func (s *Server) handleSessionEdit(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	source := syncer.Source(req.Source)
	if source != syncer.SourcePrimary && source != syncer.SourceSecondary {
		s.respondError(w, http.StatusBadRequest, "source must be primary or secondary")
		return
	}
	if err := engine.EditLabel(source, req.RowID, req.Label); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"primary":   engine.Primary(),
		"secondary": engine.Secondary(),
	})
}

func (s *Server) handleSessionReload(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	units, err := s.projects.Units(engine.Project())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := engine.Reload(engine.Project(), units); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":   engine.State(),
		"labels":  engine.Labels(),
		"primary": engine.Primary(),
	})
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := engine.Save(); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// respondErr maps the error taxonomy onto HTTP status codes.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrNameConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrUnreadable):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrIndexNotFound),
		errors.Is(err, models.ErrIndexEmpty),
		errors.Is(err, models.ErrIndexBuilding):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
