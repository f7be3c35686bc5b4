package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/fleet-console/fleet-console/internal/view"
)

// HandleListTemplates lists device templates
func (s *RESTServer) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	templates := view.SearchTemplates(s.store.Templates(), params.query)
	templates, err = view.SortTemplates(templates, params.sort)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": view.Paginate(templates, params.limit, params.offset),
		"total":     len(templates),
	})
}

// HandleCreateTemplate creates a device template
func (s *RESTServer) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.TemplateInput
	if !s.decode(w, r, &req) {
		return
	}

	tpl, err := s.store.AddTemplate(r.Context(), req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, tpl)
}

// HandleGetTemplate gets a template and the settings of its transport
func (s *RESTServer) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.store.Template(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"template":          tpl,
		"transportSettings": tpl.ActiveTransport(),
		"provisioning":      tpl.Provisioning(),
	})
}

// HandleUpdateTemplate replaces the editable fields of a template
func (s *RESTServer) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.TemplateInput
	if !s.decode(w, r, &req) {
		return
	}

	tpl, err := s.store.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, tpl)
}

// HandleDeleteTemplate deletes a template. Devices that reference it fall
// back to the default configuration.
func (s *RESTServer) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.confirmed(w, r) {
		return
	}

	if err := s.store.RemoveTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchDeleteTemplates deletes the selected templates in one commit
func (s *RESTServer) HandleBatchDeleteTemplates(w http.ResponseWriter, r *http.Request) {
	if !s.confirmed(w, r) {
		return
	}

	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		s.respondFailure(w, validation.Errorf("ids", "is required"))
		return
	}

	removed, err := s.store.RemoveTemplates(r.Context(), req.IDs)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, batchResult(removed, len(s.store.Templates())))
}

// HandleTemplateSelection applies a selection action to the filtered template
// list
func (s *RESTServer) HandleTemplateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	visible := models.RecordIDs(view.SearchTemplates(s.store.Templates(), req.Query))
	s.applySelection(w, req, visible)
}
