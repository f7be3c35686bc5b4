package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/export"
	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
	"github.com/fleet-console/fleet-console/internal/view"
)

// HandleListDevices lists devices matching q, sorted and paged
func (s *RESTServer) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	devices := view.SearchDevices(s.store.Devices(), params.query)
	devices, err = view.SortDevices(devices, params.sort)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": view.Paginate(devices, params.limit, params.offset),
		"total":   len(devices),
	})
}

// HandleCreateDevice creates a device
func (s *RESTServer) HandleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceInput
	if !s.decode(w, r, &req) {
		return
	}

	device, err := s.store.AddDevice(r.Context(), req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, device)
}

// HandleGetDevice gets a device with its resolved template name
func (s *RESTServer) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.store.Device(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"device":       device,
		"templateName": models.TemplateName(s.store.Templates(), device.TemplateID),
	})
}

// HandleUpdateDevice replaces the editable fields of a device
func (s *RESTServer) HandleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceInput
	if !s.decode(w, r, &req) {
		return
	}

	device, err := s.store.UpdateDevice(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, device)
}

// HandleDeleteDevice deletes a device
func (s *RESTServer) HandleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if !s.confirmed(w, r) {
		return
	}

	if err := s.store.RemoveDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchDeleteDevices deletes the selected devices in one commit
func (s *RESTServer) HandleBatchDeleteDevices(w http.ResponseWriter, r *http.Request) {
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

	removed, err := s.store.RemoveDevices(r.Context(), req.IDs)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, batchResult(removed, len(s.store.Devices())))
}

// HandleDeviceSelection applies a selection action to the filtered device list
func (s *RESTServer) HandleDeviceSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	visible := models.RecordIDs(view.SearchDevices(s.store.Devices(), req.Query))
	s.applySelection(w, req, visible)
}

// HandleExportDevices downloads the filtered inventory as a workbook
func (s *RESTServer) HandleExportDevices(w http.ResponseWriter, r *http.Request) {
	devices := view.SearchDevices(s.store.Devices(), r.URL.Query().Get("q"))

	data, err := export.DevicesWorkbook(devices, s.store.Templates())
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate device export")
		s.respondError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	filename := fmt.Sprintf("devices-%s.xlsx", s.now().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
