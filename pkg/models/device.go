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

package models

import (
	"net"
	"strconv"
	"time"
)

const DefaultDevicePort = 4370

// DeviceEndpoint is one biometric terminal the fleet sync talks to.
type DeviceEndpoint struct {
	Name    string `json:"name" yaml:"name"`
	IP      string `json:"ip" yaml:"ip"`
	Port    int    `json:"port" yaml:"port"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Address returns host:port, substituting the default port when unset.
func (d DeviceEndpoint) Address() string {
	port := d.Port
	if port == 0 {
		port = DefaultDevicePort
	}

	return net.JoinHostPort(d.IP, strconv.Itoa(port))
}

// DisplayName is the endpoint name, or its address for ad-hoc endpoints.
func (d DeviceEndpoint) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}

	return d.Address()
}

// DeviceSyncState tracks the outcome history of one device across runs.
type DeviceSyncState struct {
	Device              string    `json:"device"`
	Address             string    `json:"address"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastSynced          int       `json:"last_synced"`
	TotalSynced         int64     `json:"total_synced"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Apply folds one sync result into the state.
func (s *DeviceSyncState) Apply(result *SyncResult, at time.Time) {
	s.LastAttempt = at

	if result.Success {
		s.LastSuccess = at
		s.LastSynced = result.Synced
		s.TotalSynced += int64(result.Synced)
		s.LastError = ""
		s.ConsecutiveFailures = 0

		return
	}

	s.LastSynced = 0
	s.LastError = result.Message
	s.ConsecutiveFailures++
}
