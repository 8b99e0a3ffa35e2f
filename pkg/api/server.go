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

// Package api serves the operator HTTP endpoints of punchsync.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/scheduler"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Minute
	defaultIdleTimeout  = 60 * time.Second
	shutdownTimeout     = 15 * time.Second
	maxBodyBytes        = 1 << 16
)

// FleetService is the sync surface exposed over HTTP.
type FleetService interface {
	SyncAllDevices(ctx context.Context) *models.FleetResult
	SyncOneDevice(ctx context.Context, ip string, port int) *models.SyncResult
	States(ctx context.Context) ([]*models.DeviceSyncState, error)
}

type Prober interface {
	TestConnection(ctx context.Context, ip string, port int) models.ProbeResult
}

// JobRunner reports and triggers scheduled jobs.
type JobRunner interface {
	Status() []scheduler.JobStatus
	RunNow(ctx context.Context, name string) error
}

type MetricsProvider interface {
	GetMetrics() map[string]interface{}
}

type Server struct {
	router  *mux.Router
	fleet   FleetService
	prober  Prober
	jobs    JobRunner
	metrics MetricsProvider
	hub     *Hub
	apiKey  string
	logger  logger.Logger

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

func WithFleet(fleet FleetService) func(*Server) {
	return func(s *Server) { s.fleet = fleet }
}

func WithProber(p Prober) func(*Server) {
	return func(s *Server) { s.prober = p }
}

func WithJobs(jobs JobRunner) func(*Server) {
	return func(s *Server) { s.jobs = jobs }
}

func WithMetrics(m MetricsProvider) func(*Server) {
	return func(s *Server) { s.metrics = m }
}

// WithHub enables the /api/v1/stream WebSocket feed.
func WithHub(hub *Hub) func(*Server) {
	return func(s *Server) { s.hub = hub }
}

// WithAPIKey requires the key on every /api route. An empty key leaves the
// API open.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) { s.apiKey = key }
}

func WithLogger(log logger.Logger) func(*Server) {
	return func(s *Server) { s.logger = log }
}

// NewServer builds the router. Routes whose backing service is not set
// respond with 503.
func NewServer(options ...func(*Server)) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	protected := s.router.PathPrefix("/api/v1").Subrouter()
	protected.Use(APIKeyMiddleware(s.apiKey, s.logger))

	protected.HandleFunc("/sync", s.handleSyncAll).Methods(http.MethodPost)
	protected.HandleFunc("/devices/sync", s.handleSyncDevice).Methods(http.MethodPost)
	protected.HandleFunc("/devices/test", s.handleTestConnection).Methods(http.MethodPost)
	protected.HandleFunc("/devices/state", s.handleDeviceStates).Methods(http.MethodGet)
	protected.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	protected.HandleFunc("/jobs/{name}/run", s.handleRunJob).Methods(http.MethodPost)
	protected.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	protected.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called. A clean shutdown returns
// nil, as does calling Start after Shutdown.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout, // a fleet sync may run for minutes
		IdleTimeout:  defaultIdleTimeout,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.srv = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("API server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.closed = true
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
