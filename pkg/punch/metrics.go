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

package punch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

const instrumentationName = "github.com/carverauto/punchsync/pkg/punch"

// Metrics collects sync outcomes.
type Metrics interface {
	RecordDeviceSync(ctx context.Context, result *models.SyncResult, duration time.Duration)
	RecordFleetSync(ctx context.Context, result *models.FleetResult, duration time.Duration)
	RecordCircuitBreakerStateChange(name string, from, to CircuitBreakerState)
	GetMetrics() map[string]interface{}
}

type NoOpMetrics struct{}

func (NoOpMetrics) RecordDeviceSync(context.Context, *models.SyncResult, time.Duration)  {}
func (NoOpMetrics) RecordFleetSync(context.Context, *models.FleetResult, time.Duration)  {}
func (NoOpMetrics) RecordCircuitBreakerStateChange(string, CircuitBreakerState, CircuitBreakerState) {
}
func (NoOpMetrics) GetMetrics() map[string]interface{} { return map[string]interface{}{} }

type deviceCounters struct {
	Syncs        int           `json:"syncs"`
	Failures     int           `json:"failures"`
	Records      int           `json:"records"`
	RecordErrors int           `json:"record_errors"`
	LastDuration time.Duration `json:"last_duration"`
}

// InMemoryMetrics keeps a snapshot for the API and mirrors every
// observation into OTel instruments on the global MeterProvider.
type InMemoryMetrics struct {
	mu     sync.RWMutex
	logger logger.Logger

	devices       map[string]*deviceCounters
	breakerStates map[string]string
	fleetRuns     int
	lastFleetRun  time.Time
	lastFleetSize int

	inserted metric.Int64Counter
	syncs    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewInMemoryMetrics(log logger.Logger) *InMemoryMetrics {
	m := &InMemoryMetrics{
		logger:        log,
		devices:       make(map[string]*deviceCounters),
		breakerStates: make(map[string]string),
	}

	meter := otel.Meter(instrumentationName)

	var err error

	if m.inserted, err = meter.Int64Counter("punchsync.checkins.inserted",
		metric.WithDescription("Checkins written to the store"),
		metric.WithUnit("{checkin}")); err != nil {
		log.Warn().Err(err).Msg("Failed to create checkins counter")
	}

	if m.syncs, err = meter.Int64Counter("punchsync.device.syncs",
		metric.WithDescription("Device sync attempts"),
		metric.WithUnit("{sync}")); err != nil {
		log.Warn().Err(err).Msg("Failed to create device sync counter")
	}

	if m.duration, err = meter.Float64Histogram("punchsync.device.sync.duration",
		metric.WithDescription("Wall time of one device sync"),
		metric.WithUnit("s")); err != nil {
		log.Warn().Err(err).Msg("Failed to create device sync histogram")
	}

	return m
}

func (m *InMemoryMetrics) RecordDeviceSync(ctx context.Context, result *models.SyncResult, duration time.Duration) {
	m.mu.Lock()

	c, ok := m.devices[result.Device]
	if !ok {
		c = &deviceCounters{}
		m.devices[result.Device] = c
	}

	c.Syncs++
	c.Records += result.Synced
	c.RecordErrors += len(result.Errors)
	c.LastDuration = duration

	if !result.Success {
		c.Failures++
	}

	m.mu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("device", result.Device),
		attribute.Bool("success", result.Success),
	)

	if m.syncs != nil {
		m.syncs.Add(ctx, 1, attrs)
	}

	if m.inserted != nil && result.Synced > 0 {
		m.inserted.Add(ctx, int64(result.Synced), metric.WithAttributes(attribute.String("device", result.Device)))
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
}

func (m *InMemoryMetrics) RecordFleetSync(_ context.Context, result *models.FleetResult, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fleetRuns++
	m.lastFleetRun = time.Now()
	m.lastFleetSize = result.DevicesSynced

	m.logger.Debug().
		Int("devices", result.DevicesSynced).
		Int("records", result.TotalRecords).
		Dur("duration", duration).
		Msg("Recorded fleet sync")
}

func (m *InMemoryMetrics) RecordCircuitBreakerStateChange(name string, _, to CircuitBreakerState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.breakerStates[name] = to.String()
}

func (m *InMemoryMetrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make(map[string]deviceCounters, len(m.devices))
	for name, c := range m.devices {
		devices[name] = *c
	}

	breakers := make(map[string]string, len(m.breakerStates))
	for name, state := range m.breakerStates {
		breakers[name] = state
	}

	return map[string]interface{}{
		"devices":          devices,
		"circuit_breakers": breakers,
		"fleet_runs":       m.fleetRuns,
		"last_fleet_run":   m.lastFleetRun,
		"last_fleet_size":  m.lastFleetSize,
	}
}
