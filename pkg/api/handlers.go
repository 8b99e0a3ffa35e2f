/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/scheduler"
	"github.com/carverauto/punchsync/pkg/version"
)

var (
	errMissingIP   = errors.New("ip is required")
	errInvalidIP   = errors.New("ip is not a valid address")
	errInvalidPort = errors.New("port must be between 0 and 65535")
)

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Version: version.GetVersion()})
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil {
		writeError(w, "fleet sync not configured", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, s.fleet.SyncAllDevices(r.Context()))
}

func (s *Server) handleSyncDevice(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil {
		writeError(w, "fleet sync not configured", http.StatusServiceUnavailable)
		return
	}

	req, err := decodeDeviceRequest(w, r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.fleet.SyncOneDevice(r.Context(), req.IP, req.Port))
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		writeError(w, "connection test not configured", http.StatusServiceUnavailable)
		return
	}

	req, err := decodeDeviceRequest(w, r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	port := req.Port
	if port == 0 {
		port = models.DefaultDevicePort
	}

	writeJSON(w, http.StatusOK, s.prober.TestConnection(r.Context(), req.IP, port))
}

func (s *Server) handleDeviceStates(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil {
		writeError(w, "fleet sync not configured", http.StatusServiceUnavailable)
		return
	}

	states, err := s.fleet.States(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list device states")
		writeError(w, "failed to list device states", http.StatusInternalServerError)

		return
	}

	if states == nil {
		states = []*models.DeviceSyncState{}
	}

	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	if s.jobs == nil {
		writeError(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, s.jobs.Status())
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	name := mux.Vars(r)["name"]

	err := s.jobs.RunNow(r.Context(), name)

	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, fmt.Sprintf("unknown job %q", name), http.StatusNotFound)
	case err != nil:
		writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		for _, st := range s.jobs.Status() {
			if st.Name == name {
				writeJSON(w, http.StatusOK, st)
				return
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		writeError(w, "metrics not configured", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, s.metrics.GetMetrics())
}

func decodeDeviceRequest(w http.ResponseWriter, r *http.Request) (models.DeviceRequest, error) {
	var req models.DeviceRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	if req.IP == "" {
		return req, errMissingIP
	}

	if net.ParseIP(req.IP) == nil {
		return req, errInvalidIP
	}

	if req.Port < 0 || req.Port > 65535 {
		return req, errInvalidPort
	}

	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// headers are already sent; nothing useful to do with an encode error
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.ErrorResponse{Message: message, Status: statusCode})
}
