package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
	"github.com/aparetext/aparetext/internal/usecase"
)

type updateRequest struct {
	snippet.Content
	ChangeReason string `json:"change_reason"`
}

type expandRequest struct {
	Abbreviation string         `json:"abbreviation"`
	Variables    map[string]any `json:"variables"`
	Source       snippet.Source `json:"source"`
	TargetApp    string         `json:"target_app"`
	TargetDomain string         `json:"target_domain"`
}

func (e expandRequest) input() usecase.ExpandInput {
	return usecase.ExpandInput{
		Values:       e.Variables,
		Source:       e.Source,
		TargetApp:    e.TargetApp,
		TargetDomain: e.TargetDomain,
	}
}

type usageRequest struct {
	Source       snippet.Source `json:"source"`
	TargetApp    string         `json:"target_app"`
	TargetDomain string         `json:"target_domain"`
}

type templateRequest struct {
	Template  string         `json:"template"`
	Variables map[string]any `json:"variables"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	enabledOnly, err := boolParam(r, "enabled_only")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.snippets.ListAll(r.Context(), enabledOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	content := snippet.New().Content
	if err := decodeJSON(r, &content); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.snippets.Create(r.Context(), content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSearchSnippets(w http.ResponseWriter, r *http.Request) {
	includeDisabled, err := boolParam(r, "include_disabled")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	results, err := s.snippets.Search(r.Context(), services.SearchOptions{
		Query:           query.Get("q"),
		Tags:            snippet.ParseTags(query.Get("tags")),
		ScopeType:       query.Get("scope_type"),
		IncludeDisabled: includeDisabled,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetByAbbreviation(w http.ResponseWriter, r *http.Request) {
	abbreviation := chi.URLParam(r, "abbreviation")
	found, err := s.snippets.GetByAbbreviation(r.Context(), abbreviation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		s.writeError(w, r, notFound("abbreviation", abbreviation))
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := s.snippets.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		s.writeError(w, r, notFound("snippet", id))
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req := updateRequest{Content: snippet.New().Content}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.snippets.Update(r.Context(), id, req.Content, req.ChangeReason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.writeError(w, r, notFound("snippet", id))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.snippets.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.writeError(w, r, notFound("snippet", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Source == "" {
		req.Source = snippet.SourceWeb
	}
	result, err := s.expander.Expand(r.Context(), req.Abbreviation, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExpandByID(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Source == "" {
		req.Source = snippet.SourceWeb
	}
	result, err := s.expander.ExpandByID(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req usageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	found, err := s.snippets.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		s.writeError(w, r, notFound("snippet", id))
		return
	}
	if err := s.snippets.LogUsage(r.Context(), id, services.UsageEvent(req)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.snippets.ListVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	version, err := s.snippets.GetVersion(r.Context(), chi.URLParam(r, "id"), versionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if version == nil {
		s.writeError(w, r, notFound("version", versionID))
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (s *Server) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	restored, err := s.snippets.RestoreVersion(r.Context(), chi.URLParam(r, "id"), versionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if restored == nil {
		s.writeError(w, r, notFound("version", versionID))
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

func (s *Server) handleDiffVersions(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		s.writeError(w, r, fmt.Errorf("%w: from is required", errBadRequest))
		return
	}
	patch, err := s.snippets.DiffVersions(r.Context(), chi.URLParam(r, "id"), from, r.URL.Query().Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if patch == nil {
		s.writeError(w, r, notFound("version", from))
		return
	}
	w.Header().Set("Content-Type", "application/merge-patch+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(patch)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.analyzer.Compute(r.Context(), r.URL.Query().Get("snippet_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := services.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	data, err := s.snippets.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filename := "aparetext-export-" + data.ExportedAt.Format("20060102-150405") + "." + string(format)
	contentType := "application/json"
	if format == services.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := services.WriteExport(w, data, format); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	replace, err := boolParam(r, "replace")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format, err := importFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := services.ReadExport(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.snippets.Import(r.Context(), data, replace)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func importFormat(r *http.Request) (services.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		format, err := services.ParseFormat(name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return format, nil
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return services.FormatYAML, nil
	}
	return services.FormatJSON, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleReplaceSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(r, &values); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.settings.Replace(r.Context(), values); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := struct {
		IsValid bool   `json:"is_valid"`
		Error   string `json:"error,omitempty"`
	}{IsValid: true}
	if err := template.Validate(req.Template); err != nil {
		resp.IsValid = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTemplateInfo(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, template.GetInfo(req.Template))
}

// handlePreviewTemplate expands a template without touching the store.
func (s *Server) handlePreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	content, cursor := s.parser.ParseWithCursorPosition(req.Template, req.Variables)
	writeJSON(w, http.StatusOK, map[string]any{
		"content":         content,
		"cursor_position": cursor,
	})
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, name)
	}
	return v, nil
}
