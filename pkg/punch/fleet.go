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
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

// Fleet syncs every enabled device. One device failing never stops the
// others; only failing to list devices fails the whole run.
type Fleet struct {
	source    DeviceSource
	syncer    DeviceSyncer
	states    StateStore
	blacklist *NetworkBlacklist
	metrics   Metrics
	logger    logger.Logger

	maxConcurrency int

	breakerConfig  CircuitBreakerConfig
	breakerEnabled bool
	breakers       map[string]*CircuitBreaker
	breakersMu     sync.Mutex

	runs singleflight.Group

	now func() time.Time
}

type FleetOption func(*Fleet)

func WithStateStore(store StateStore) FleetOption {
	return func(f *Fleet) { f.states = store }
}

func WithBlacklist(nb *NetworkBlacklist) FleetOption {
	return func(f *Fleet) { f.blacklist = nb }
}

func WithFleetMetrics(m Metrics) FleetOption {
	return func(f *Fleet) { f.metrics = m }
}

// WithMaxConcurrency bounds how many devices sync at once. 1 is sequential.
func WithMaxConcurrency(n int) FleetOption {
	return func(f *Fleet) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

func WithCircuitBreaker(cfg CircuitBreakerConfig) FleetOption {
	return func(f *Fleet) {
		f.breakerConfig = cfg
		f.breakerEnabled = cfg.FailureThreshold > 0
	}
}

func WithClock(now func() time.Time) FleetOption {
	return func(f *Fleet) { f.now = now }
}

func NewFleet(source DeviceSource, syncer DeviceSyncer, log logger.Logger, opts ...FleetOption) *Fleet {
	f := &Fleet{
		source:         source,
		syncer:         syncer,
		metrics:        NoOpMetrics{},
		logger:         log,
		maxConcurrency: 1,
		breakers:       make(map[string]*CircuitBreaker),
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// SyncAllDevices runs one device sync per enabled endpoint and aggregates
// the outcome. Results keep the order of the device list. A call made while
// another fleet run is in progress joins that run and gets its result. The
// run is not cancelled when one of its callers goes away.
func (f *Fleet) SyncAllDevices(ctx context.Context) *models.FleetResult {
	v, _, shared := f.runs.Do("fleet", func() (interface{}, error) {
		return f.syncAll(context.WithoutCancel(ctx)), nil
	})

	if shared {
		f.logger.Debug().Msg("Joined fleet sync already in progress")
	}

	return v.(*models.FleetResult)
}

func (f *Fleet) syncAll(ctx context.Context) *models.FleetResult {
	start := f.now()

	endpoints, err := f.source.EnabledDevices(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to load enabled devices")

		return &models.FleetResult{
			Success: false,
			Message: fmt.Sprintf("Error syncing devices: %v", err),
		}
	}

	endpoints = f.blacklist.FilterEndpoints(endpoints)

	if len(endpoints) == 0 {
		f.logger.Info().Msg("No enabled devices to sync")

		return &models.FleetResult{
			Success: true,
			Message: "No enabled devices found. Please configure and enable biometric devices.",
		}
	}

	f.logger.Info().
		Int("devices", len(endpoints)).
		Int("max_concurrency", f.maxConcurrency).
		Msg("Starting fleet sync")

	results := make([]*models.SyncResult, len(endpoints))

	var g errgroup.Group

	g.SetLimit(f.maxConcurrency)

	for i, endpoint := range endpoints {
		g.Go(func() error {
			results[i] = f.syncEndpoint(ctx, endpoint)

			return nil
		})
	}

	_ = g.Wait()

	fleet := &models.FleetResult{
		Success:       true,
		DevicesSynced: len(endpoints),
		Results:       results,
	}

	for i, result := range results {
		if result.Success {
			fleet.TotalRecords += result.Synced

			continue
		}

		fleet.Errors = append(fleet.Errors, fmt.Sprintf("%s: %s", endpoints[i].DisplayName(), result.Message))
	}

	fleet.Message = fmt.Sprintf("Synced %d records from %d device(s)", fleet.TotalRecords, fleet.DevicesSynced)

	f.metrics.RecordFleetSync(ctx, fleet, f.now().Sub(start))

	if len(fleet.Errors) > 0 {
		f.logger.Warn().Strs("errors", fleet.Errors).Msg("Fleet sync finished with device errors")
	}

	f.logger.Info().
		Int("devices", fleet.DevicesSynced).
		Int("records", fleet.TotalRecords).
		Msg("Fleet sync completed")

	return fleet
}

// SyncOneDevice syncs an ad-hoc address. Port 0 means the default port.
func (f *Fleet) SyncOneDevice(ctx context.Context, ip string, port int) *models.SyncResult {
	if port == 0 {
		port = models.DefaultDevicePort
	}

	endpoint := models.DeviceEndpoint{IP: ip, Port: port, Enabled: true}

	result := f.runSync(ctx, endpoint)
	f.recordState(ctx, endpoint, result)

	return result
}

// States lists the stored per-device history, if a state store is set.
func (f *Fleet) States(ctx context.Context) ([]*models.DeviceSyncState, error) {
	if f.states == nil {
		return nil, nil
	}

	return f.states.List(ctx)
}

func (f *Fleet) syncEndpoint(ctx context.Context, endpoint models.DeviceEndpoint) *models.SyncResult {
	var result *models.SyncResult

	breaker := f.breakerFor(endpoint)
	if breaker == nil {
		result = f.runSync(ctx, endpoint)
	} else {
		err := breaker.Execute(func() error {
			result = f.runSync(ctx, endpoint)
			if !result.Success {
				return errDeviceSyncFailed
			}

			return nil
		})

		if errors.Is(err, ErrCircuitOpen) {
			f.logger.Warn().
				Str("device", endpoint.DisplayName()).
				Time("retry_at", breaker.RetryAt()).
				Msg("Skipping device with open circuit breaker")

			return &models.SyncResult{
				Device:  endpoint.DisplayName(),
				Address: endpoint.Address(),
				Message: fmt.Sprintf("Device skipped after repeated failures; next attempt after %s",
					breaker.RetryAt().Format(time.RFC3339)),
			}
		}
	}

	f.recordState(ctx, endpoint, result)

	return result
}

// runSync shields the fleet from a panicking DeviceSyncer.
func (f *Fleet) runSync(ctx context.Context, endpoint models.DeviceEndpoint) (result *models.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Str("device", endpoint.DisplayName()).Msg("Device sync panicked")

			result = &models.SyncResult{
				Device:  endpoint.DisplayName(),
				Address: endpoint.Address(),
				Message: fmt.Sprintf("Error during sync: %v", r),
			}
		}
	}()

	result = f.syncer.SyncDevice(ctx, endpoint)
	if result == nil {
		result = &models.SyncResult{
			Device:  endpoint.DisplayName(),
			Address: endpoint.Address(),
			Message: "Error during sync: no result",
		}
	}

	return result
}

func (f *Fleet) breakerFor(endpoint models.DeviceEndpoint) *CircuitBreaker {
	if !f.breakerEnabled {
		return nil
	}

	key := endpoint.Address()

	f.breakersMu.Lock()
	defer f.breakersMu.Unlock()

	cb, ok := f.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(key, f.breakerConfig, f.logger)
		cb.now = f.now
		cb.lastResetTime = f.now()
		cb.onChange = f.metrics.RecordCircuitBreakerStateChange
		f.breakers[key] = cb
	}

	return cb
}

func (f *Fleet) recordState(ctx context.Context, endpoint models.DeviceEndpoint, result *models.SyncResult) {
	if f.states == nil {
		return
	}

	key := endpoint.DisplayName()

	state, found, err := f.states.Get(ctx, key)
	if err != nil {
		f.logger.Warn().Err(err).Str("device", key).Msg("Failed to load device sync state")
	}

	if !found || state == nil {
		state = &models.DeviceSyncState{Device: key}
	}

	state.Address = endpoint.Address()
	state.Apply(result, f.now())

	if err := f.states.Put(ctx, state); err != nil {
		f.logger.Warn().Err(err).Str("device", key).Msg("Failed to store device sync state")
	}
}
