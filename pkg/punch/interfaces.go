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

// Package punch pulls attendance punches from biometric terminals and
// reconciles them into a checkin store.
package punch

import (
	"context"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/zk"
)

//go:generate mockgen -destination=mock_punch.go -package=punch github.com/carverauto/punchsync/pkg/punch DeviceSource,EmployeeDirectory,EventPublisher,StateStore

// DeviceSource lists the endpoints that should be synced.
type DeviceSource interface {
	EnabledDevices(ctx context.Context) ([]models.DeviceEndpoint, error)
}

// EmployeeDirectory maps a device-local user id to an employee id.
type EmployeeDirectory interface {
	Lookup(ctx context.Context, deviceUserID string) (employee string, found bool, err error)
}

// CheckinStore hands out a writer per device sync.
type CheckinStore interface {
	Writer(ctx context.Context) (CheckinWriter, error)
}

// CheckinWriter batches checkin writes until Commit. Exists must see rows
// inserted earlier through the same writer. Insert reports false when the
// (employee, time, log type) key already exists. Uniqueness of that key is
// enforced by the store, so concurrent writers never need to coordinate.
// Commit returns the checkins of the batch that were actually stored.
type CheckinWriter interface {
	Exists(ctx context.Context, employee string, at time.Time, logType string) (bool, error)
	Insert(ctx context.Context, checkin *models.Checkin) (bool, error)
	Commit(ctx context.Context) ([]*models.Checkin, error)
	Close() error
}

// EventPublisher announces committed checkins and device sync outcomes.
type EventPublisher interface {
	PublishCheckins(ctx context.Context, device models.DeviceEndpoint, checkins []*models.Checkin) error
	PublishDeviceSync(ctx context.Context, result *models.SyncResult) error
}

// StateStore persists per-device sync history.
type StateStore interface {
	Get(ctx context.Context, device string) (*models.DeviceSyncState, bool, error)
	Put(ctx context.Context, state *models.DeviceSyncState) error
	List(ctx context.Context) ([]*models.DeviceSyncState, error)
}

// DeviceSyncer syncs a single endpoint. *Syncer implements it.
type DeviceSyncer interface {
	SyncDevice(ctx context.Context, endpoint models.DeviceEndpoint) *models.SyncResult
}

// ChannelFactory builds the channel used to talk to one endpoint.
type ChannelFactory func(endpoint models.DeviceEndpoint, timeout time.Duration, log logger.Logger) zk.Channel

// UDPChannels is the production ChannelFactory.
func UDPChannels(endpoint models.DeviceEndpoint, timeout time.Duration, log logger.Logger) zk.Channel {
	port := endpoint.Port
	if port == 0 {
		port = models.DefaultDevicePort
	}

	return zk.NewSession(endpoint.IP, port, timeout, log)
}
