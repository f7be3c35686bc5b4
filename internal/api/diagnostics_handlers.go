package api

import (
	"errors"
	"net/http"

	"github.com/fleet-console/fleet-console/internal/diagnostics"
)

// HandleDiagnosticsStatus returns the latest analysis run
func (s *RESTServer) HandleDiagnosticsStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.runner.Status())
}

// HandleStartDiagnostics starts an analysis of the current fleet. With
// wait=true the request blocks until the run settles.
func (s *RESTServer) HandleStartDiagnostics(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Start(s.store.Devices())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		s.respondJSON(w, http.StatusAccepted, run)
		return
	}

	settled, err := s.runner.Wait(r.Context(), run.ID)
	if err != nil {
		s.runner.CancelRun(run.ID)
		s.respondError(w, http.StatusGatewayTimeout, "analysis did not finish in time")
		return
	}
	if settled.State == diagnostics.StateFailed {
		s.respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": settled.Error,
			"run":   settled,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, settled)
}

// HandleCancelDiagnostics cancels the running analysis; its result is
// discarded if it still arrives
func (s *RESTServer) HandleCancelDiagnostics(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runner.Cancel()
	if !ok {
		s.respondError(w, http.StatusConflict, "no analysis in flight")
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

// configurationFailed is shown when no configuration could be generated.
const configurationFailed = "无法生成配置。"

// HandleSmartConfig suggests configuration parameters for a device type
func (s *RESTServer) HandleSmartConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceType string `json:"deviceType"`
		Goal       string `json:"goal"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	params, err := s.advisor.SmartConfiguration(r.Context(), req.DeviceType, req.Goal)
	if err != nil {
		if errors.Is(err, diagnostics.ErrAnalysisFailure) {
			s.respondError(w, http.StatusBadGateway, configurationFailed)
			return
		}
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"configuration": params,
	})
}
