package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/attrtype"
	"github.com/fleet-console/fleet-console/internal/diagnostics"
	"github.com/fleet-console/fleet-console/internal/storage"
	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/fleet-console/fleet-console/internal/view"
)

// ========== Service handlers ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"time":    s.now().UTC(),
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   s.config.Server.Name,
		"version":   s.config.Server.Version,
		"health":    "/api/v1/health",
		"dashboard": "/api/v1/dashboard",
	})
}

// HandleDashboard returns the fleet overview counters.
func (s *RESTServer) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":     view.Summarize(s.store.Devices()),
		"templates":   len(s.store.Templates()),
		"diagnostics": s.runner.Status().State,
	})
}

// ========== Settings ==========

// HandleGetTheme returns the stored theme or the configured default.
func (s *RESTServer) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.store.Theme(r.Context(), s.config.Web.DefaultTheme)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

// HandleSetTheme stores the theme preference.
func (s *RESTServer) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.SetTheme(r.Context(), req.Theme); err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

// ========== Helper methods ==========

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFailure maps domain errors onto status codes.
func (s *RESTServer) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrValidation), errors.Is(err, attrtype.ErrInvalidValue):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, diagnostics.ErrInFlight):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, diagnostics.ErrAnalysisFailure):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads the JSON body into v and answers 400 when it cannot.
func (s *RESTServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// confirmed answers 428 unless the request carries confirm=true. Destructive
// endpoints call it before touching state.
func (s *RESTServer) confirmed(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") == "true" {
		return true
	}
	s.respondError(w, http.StatusPreconditionRequired, "confirmation required: repeat the request with confirm=true")
	return false
}

type listParams struct {
	query  string
	sort   view.SortSpec
	limit  int
	offset int
}

func parseListParams(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	p := listParams{query: q.Get("q")}

	spec, err := view.ParseSort(q.Get("sort"), q.Get("order"))
	if err != nil {
		return p, err
	}
	p.sort = spec

	if v := q.Get("limit"); v != "" {
		if p.limit, err = strconv.Atoi(v); err != nil || p.limit < 0 {
			return p, validation.Errorf("limit", "must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if p.offset, err = strconv.Atoi(v); err != nil || p.offset < 0 {
			return p, validation.Errorf("offset", "must be a non-negative integer")
		}
	}
	return p, nil
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type selectionRequest struct {
	Query    string   `json:"q"`
	Scope    string   `json:"scope,omitempty"`
	Selected []string `json:"selected"`
	Action   string   `json:"action"`
	ID       string   `json:"id,omitempty"`
}

// applySelection runs one selection action against the visible ids and
// writes the resulting selection.
func (s *RESTServer) applySelection(w http.ResponseWriter, req selectionRequest, visible []string) {
	sel := view.NewSelection(req.Selected...)

	switch req.Action {
	case "toggle_all":
		sel.ToggleAll(visible)
	case "toggle":
		if req.ID == "" {
			s.respondFailure(w, validation.Errorf("id", "is required"))
			return
		}
		sel.Toggle(req.ID)
	case "clear":
		sel.Clear()
	default:
		s.respondFailure(w, validation.Errorf("action", "must be one of [toggle_all toggle clear]"))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"selected":    sel.IDs(),
		"allSelected": sel.AllSelected(visible),
		"visible":     len(visible),
	})
}

// batchResult reports a batch delete. The selection is always cleared once
// the batch commits, including ids that no longer existed.
func batchResult(removed []string, remaining int) map[string]interface{} {
	if removed == nil {
		removed = []string{}
	}
	return map[string]interface{}{
		"removed":   removed,
		"remaining": remaining,
		"selected":  view.NewSelection().IDs(),
	}
}
