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

// SyncResult is the outcome of syncing one device.
type SyncResult struct {
	Device  string   `json:"device,omitempty"`
	Address string   `json:"address,omitempty"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Synced  int      `json:"synced"`
	Errors  []string `json:"errors,omitempty"`
}

// FleetResult aggregates one pass over every enabled device.
type FleetResult struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	DevicesSynced int           `json:"devices_synced"`
	TotalRecords  int           `json:"total_records"`
	Results       []*SyncResult `json:"results,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
}

// ProbeResult is the outcome of a reachability check. Exactly one of Message
// and Error is set.
type ProbeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
