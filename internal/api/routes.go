package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)
	r.Get("/dashboard", s.HandleDashboard)

	// Devices
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.HandleListDevices)
		r.Post("/", s.HandleCreateDevice)
		r.Post("/batch-delete", s.HandleBatchDeleteDevices)
		r.Post("/selection", s.HandleDeviceSelection)
		r.Get("/export", s.HandleExportDevices)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.HandleGetDevice)
			r.Put("/", s.HandleUpdateDevice)
			r.Delete("/", s.HandleDeleteDevice)

			// Attributes
			r.Route("/attributes", func(r chi.Router) {
				r.Get("/", s.HandleListAttributes)
				r.Post("/", s.HandleCreateAttribute)
				r.Post("/batch-delete", s.HandleBatchDeleteAttributes)
				r.Post("/selection", s.HandleAttributeSelection)
				r.Get("/{key}", s.HandleGetAttribute)
				r.Put("/{key}", s.HandleUpdateAttribute)
				r.Delete("/{key}", s.HandleDeleteAttribute)
			})

			// Telemetry
			r.Get("/telemetry", s.HandleListTelemetry)
			r.Post("/telemetry/{key}/collect", s.HandleCollectTelemetry)
		})
	})

	// Device templates
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.HandleListTemplates)
		r.Post("/", s.HandleCreateTemplate)
		r.Post("/batch-delete", s.HandleBatchDeleteTemplates)
		r.Post("/selection", s.HandleTemplateSelection)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.HandleGetTemplate)
			r.Put("/", s.HandleUpdateTemplate)
			r.Delete("/", s.HandleDeleteTemplate)
		})
	})

	// Settings
	r.Get("/settings/theme", s.HandleGetTheme)
	r.Put("/settings/theme", s.HandleSetTheme)

	// AI diagnostics
	r.Route("/diagnostics", func(r chi.Router) {
		r.Get("/", s.HandleDiagnosticsStatus)
		r.Post("/", s.HandleStartDiagnostics)
		r.Delete("/", s.HandleCancelDiagnostics)
		r.Post("/smart-config", s.HandleSmartConfig)
	})
}
