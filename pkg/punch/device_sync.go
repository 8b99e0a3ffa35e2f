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
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/zk"
)

// Syncer reconciles one device's attendance log into the checkin store.
type Syncer struct {
	directory EmployeeDirectory
	store     CheckinStore
	publisher EventPublisher
	channels  ChannelFactory
	metrics   Metrics
	logger    logger.Logger
	tracer    trace.Tracer

	location  *time.Location
	batchSize int
	timeout   time.Duration
}

var _ DeviceSyncer = (*Syncer)(nil)

type SyncerOption func(*Syncer)

func WithChannelFactory(f ChannelFactory) SyncerOption {
	return func(s *Syncer) { s.channels = f }
}

func WithPublisher(p EventPublisher) SyncerOption {
	return func(s *Syncer) { s.publisher = p }
}

func WithMetrics(m Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

func WithLocation(loc *time.Location) SyncerOption {
	return func(s *Syncer) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithBatchSize sets how many processed records go into one commit.
func WithBatchSize(n int) SyncerOption {
	return func(s *Syncer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithTimeout(timeout time.Duration) SyncerOption {
	return func(s *Syncer) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewSyncer(directory EmployeeDirectory, store CheckinStore, log logger.Logger, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		directory: directory,
		store:     store,
		channels:  UDPChannels,
		metrics:   NoOpMetrics{},
		logger:    log,
		tracer:    otel.Tracer(instrumentationName),
		location:  time.Local,
		batchSize: DefaultBatchSize,
		timeout:   DefaultSyncTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSyncerFromConfig applies the sync settings of cfg, which must already
// be validated.
func NewSyncerFromConfig(cfg *Config, directory EmployeeDirectory, store CheckinStore,
	log logger.Logger, opts ...SyncerOption) (*Syncer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	base := []SyncerOption{
		WithLocation(loc),
		WithBatchSize(cfg.BatchSize),
		WithTimeout(time.Duration(cfg.SyncTimeout)),
	}

	return NewSyncer(directory, store, log, append(base, opts...)...), nil
}

// SyncDevice connects to endpoint, reads its log and stores every new punch.
// Failures are reported in the result, never returned or panicked.
func (s *Syncer) SyncDevice(ctx context.Context, endpoint models.DeviceEndpoint) *models.SyncResult {
	if endpoint.Port == 0 {
		endpoint.Port = models.DefaultDevicePort
	}

	ctx, span := s.tracer.Start(ctx, "punch.SyncDevice", trace.WithAttributes(
		attribute.String("device.name", endpoint.DisplayName()),
		attribute.String("device.address", endpoint.Address()),
	))
	defer span.End()

	start := time.Now()

	result := s.syncDevice(ctx, endpoint)

	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int("punch.synced", result.Synced),
		attribute.Int("punch.errors", len(result.Errors)),
	)

	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}

	s.metrics.RecordDeviceSync(ctx, result, duration)

	if s.publisher != nil {
		if err := s.publisher.PublishDeviceSync(ctx, result); err != nil {
			s.logger.Warn().Err(err).Str("device", result.Address).Msg("Failed to publish device sync event")
		}
	}

	s.logger.Info().
		Str("device", result.Address).
		Bool("success", result.Success).
		Int("synced", result.Synced).
		Int("errors", len(result.Errors)).
		Dur("duration", duration).
		Msg(result.Message)

	return result
}

func (s *Syncer) syncDevice(ctx context.Context, endpoint models.DeviceEndpoint) (result *models.SyncResult) {
	result = &models.SyncResult{
		Device:  endpoint.DisplayName(),
		Address: endpoint.Address(),
	}

	ch := s.channels(endpoint, s.timeout, s.logger)
	defer ch.Disconnect()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("device", result.Address).Msg("Device sync panicked")

			result.Success = false
			result.Message = fmt.Sprintf("Error during sync: %v", r)
		}
	}()

	if !ch.Connect(ctx) {
		result.Message = fmt.Sprintf("Failed to connect to device at %s:%d", endpoint.IP, endpoint.Port)

		return result
	}

	records := zk.ReadLogs(ctx, ch, s.logger)
	if len(records) == 0 {
		result.Success = true
		result.Message = "No new attendance logs found"

		return result
	}

	writer, err := s.store.Writer(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("device", result.Address).Msg("Failed to open checkin store")

		result.Message = fmt.Sprintf("Error during sync: %v", err)

		return result
	}

	defer func() {
		if err := writer.Close(); err != nil {
			s.logger.Warn().Err(err).Str("device", result.Address).Msg("Failed to close checkin writer")
		}
	}()

	var pending []*models.Checkin

	for i, record := range records {
		checkin, err := s.processRecord(ctx, writer, endpoint, record)

		switch {
		case errors.Is(err, ErrUnresolvedEmployee):
			result.Errors = append(result.Errors, fmt.Sprintf("Employee not found for device ID: %d", record.UserID))
		case err != nil:
			s.logger.Error().Err(err).Str("device", result.Address).Int("log", i).Msg("Failed to process attendance log")

			result.Errors = append(result.Errors, fmt.Sprintf("Error processing log %d: %v", i, err))
		case checkin != nil:
			pending = append(pending, checkin)
			result.Synced++
		}

		if (i+1)%s.batchSize == 0 {
			pending = s.commit(ctx, writer, endpoint, pending, i+1, result)
		}
	}

	s.commit(ctx, writer, endpoint, pending, len(records), result)

	result.Success = true
	result.Message = fmt.Sprintf("Synced %d attendance logs", result.Synced)

	return result
}

// processRecord returns the inserted checkin, or nil when the punch was
// already stored. Errors wrap ErrUnresolvedEmployee or ErrRecordProcessing.
func (s *Syncer) processRecord(ctx context.Context, w CheckinWriter, endpoint models.DeviceEndpoint,
	record models.PunchRecord) (checkin *models.Checkin, err error) {
	defer func() {
		if r := recover(); r != nil {
			checkin = nil
			err = &recordError{cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	employee, found, err := s.directory.Lookup(ctx, strconv.FormatUint(uint64(record.UserID), 10))
	if err != nil {
		return nil, &recordError{cause: err}
	}

	if !found {
		return nil, fmt.Errorf("%w for device ID %d", ErrUnresolvedEmployee, record.UserID)
	}

	candidate := &models.Checkin{
		ID:       uuid.NewString(),
		Employee: employee,
		Time:     record.Time(s.location),
		LogType:  record.LogType(),
		DeviceID: endpoint.IP,
	}

	exists, err := w.Exists(ctx, candidate.Employee, candidate.Time, candidate.LogType)
	if err != nil {
		return nil, &recordError{cause: err}
	}

	if exists {
		return nil, nil
	}

	inserted, err := w.Insert(ctx, candidate)
	if err != nil {
		return nil, &recordError{cause: err}
	}

	if !inserted {
		return nil, nil
	}

	return candidate, nil
}

// commit flushes the current batch. Checkins of a failed batch were never
// durably written, and checkins another writer stored first are not ours, so
// both are taken back out of the synced count.
func (s *Syncer) commit(ctx context.Context, w CheckinWriter, endpoint models.DeviceEndpoint,
	pending []*models.Checkin, processed int, result *models.SyncResult) []*models.Checkin {
	stored, err := w.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("device", result.Address).
			Int("processed", processed).
			Int("lost", len(pending)).
			Msg("Batch commit failed")

		result.Synced -= len(pending)
		result.Errors = append(result.Errors, fmt.Sprintf("Error committing batch at log %d: %v", processed, err))

		return nil
	}

	if lost := len(pending) - len(stored); lost > 0 {
		s.logger.Debug().
			Str("device", result.Address).
			Int("already_stored", lost).
			Msg("Checkins were stored by another sync first")

		result.Synced -= lost
	}

	s.logger.Debug().
		Str("device", result.Address).
		Int("processed", processed).
		Int("inserted", len(stored)).
		Msg("Batch committed")

	if s.publisher != nil && len(stored) > 0 {
		if err := s.publisher.PublishCheckins(ctx, endpoint, stored); err != nil {
			s.logger.Warn().Err(err).Str("device", result.Address).Msg("Failed to publish checkin events")
		}
	}

	return nil
}

// Deps are the collaborators of a one-shot SyncDevice call.
type Deps struct {
	Directory EmployeeDirectory
	Store     CheckinStore
	Logger    logger.Logger
	Options   []SyncerOption
}

// SyncDevice is a one-shot device sync: connect, read, reconcile, disconnect.
func SyncDevice(ctx context.Context, endpoint models.DeviceEndpoint, deps Deps) *models.SyncResult {
	log := deps.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	return NewSyncer(deps.Directory, deps.Store, log, deps.Options...).SyncDevice(ctx, endpoint)
}
