package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleet-console/fleet-console/internal/attrtype"
	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/storage"
	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/fleet-console/fleet-console/internal/view"
)

// attributeRequest is the attribute modal form. Value is read according to
// Type before anything is stored.
type attributeRequest struct {
	Key   string                `json:"key"`
	Type  attrtype.ValueType    `json:"type"`
	Value interface{}           `json:"value"`
	Scope models.AttributeScope `json:"scope"`
}

func (s *RESTServer) buildAttribute(key string, req attributeRequest) (models.DeviceAttribute, error) {
	if req.Type == "" {
		req.Type = attrtype.String
	}
	value, err := attrtype.Coerce(req.Value, req.Type)
	if err != nil {
		return models.DeviceAttribute{}, err
	}
	return models.NewAttribute(key, value, req.Scope, s.now())
}

// HandleListAttributes lists the attributes of a device filtered by q and scope
func (s *RESTServer) HandleListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := s.store.Attributes(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	attrs = view.FilterAttributes(attrs, view.AttributeFilter{
		Search: r.URL.Query().Get("q"),
		Scope:  r.URL.Query().Get("scope"),
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"attributes": attrs,
		"total":      len(attrs),
	})
}

// HandleGetAttribute returns one attribute with its inferred type and the
// text the edit form starts from
func (s *RESTServer) HandleGetAttribute(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	attrs, err := s.store.Attributes(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	for _, attr := range attrs {
		if attr.Key == key {
			valueType, text := attrtype.Infer(attr.Value)
			s.respondJSON(w, http.StatusOK, map[string]interface{}{
				"attribute": attr,
				"type":      valueType,
				"text":      text,
			})
			return
		}
	}
	s.respondFailure(w, fmt.Errorf("attribute %s: %w", key, storage.ErrNotFound))
}

// HandleCreateAttribute adds an attribute; an existing key is rejected
func (s *RESTServer) HandleCreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if !s.decode(w, r, &req) {
		return
	}

	attr, err := s.buildAttribute(req.Key, req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	attr, err = s.store.UpsertAttribute(r.Context(), chi.URLParam(r, "id"), attr, true)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, attr)
}

// HandleUpdateAttribute replaces value and scope of an attribute
func (s *RESTServer) HandleUpdateAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if !s.decode(w, r, &req) {
		return
	}

	key := chi.URLParam(r, "key")
	if req.Key != "" && req.Key != key {
		s.respondFailure(w, validation.Errorf("key", "cannot be changed"))
		return
	}

	attr, err := s.buildAttribute(key, req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	attr, err = s.store.UpsertAttribute(r.Context(), chi.URLParam(r, "id"), attr, false)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, attr)
}

// HandleDeleteAttribute deletes one attribute
func (s *RESTServer) HandleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	if !s.confirmed(w, r) {
		return
	}

	key := chi.URLParam(r, "key")
	removed, err := s.store.RemoveAttributes(r.Context(), chi.URLParam(r, "id"), []string{key})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if len(removed) == 0 {
		s.respondFailure(w, fmt.Errorf("attribute %s: %w", key, storage.ErrNotFound))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchDeleteAttributes deletes the selected attribute keys
func (s *RESTServer) HandleBatchDeleteAttributes(w http.ResponseWriter, r *http.Request) {
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

	deviceID := chi.URLParam(r, "id")
	removed, err := s.store.RemoveAttributes(r.Context(), deviceID, req.IDs)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	attrs, err := s.store.Attributes(deviceID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, batchResult(removed, len(attrs)))
}

// HandleAttributeSelection applies a selection action to the filtered
// attribute list
func (s *RESTServer) HandleAttributeSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	attrs, err := s.store.Attributes(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	attrs = view.FilterAttributes(attrs, view.AttributeFilter{Search: req.Query, Scope: req.Scope})
	visible := make([]string, len(attrs))
	for i, a := range attrs {
		visible[i] = a.Key
	}
	s.applySelection(w, req, visible)
}

// ========== Telemetry ==========

// HandleListTelemetry lists telemetry channels filtered by q, type and recency
func (s *RESTServer) HandleListTelemetry(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Telemetry(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	q := r.URL.Query()
	recency, err := view.ParseRecency(q.Get("status"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	items = view.FilterTelemetry(items, view.TelemetryFilter{
		Search: q.Get("q"),
		Type:   q.Get("type"),
		Status: recency,
	}, s.now())

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"telemetry": items,
		"total":     len(items),
	})
}

// HandleCollectTelemetry records a reading, coerced to the channel type
func (s *RESTServer) HandleCollectTelemetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value interface{} `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	deviceID, key := chi.URLParam(r, "id"), chi.URLParam(r, "key")
	items, err := s.store.Telemetry(deviceID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	var channel *models.TelemetryItem
	for i := range items {
		if items[i].Key == key {
			channel = &items[i]
			break
		}
	}
	if channel == nil {
		s.respondFailure(w, fmt.Errorf("telemetry %s: %w", key, storage.ErrNotFound))
		return
	}

	value, err := attrtype.Coerce(req.Value, attrtype.ForTelemetry(channel.Type))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	item, err := s.store.CollectTelemetry(r.Context(), deviceID, key, value)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}
