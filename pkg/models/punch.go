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

import "time"

const (
	LogTypeIn  = "IN"
	LogTypeOut = "OUT"
)

// PunchRecord is one attendance slot as reported by a device.
type PunchRecord struct {
	UserID     uint32 `json:"user_id"`
	Timestamp  uint32 `json:"timestamp"`
	VerifyType uint8  `json:"verify_type"`
	InOutType  uint8  `json:"in_out_type"`
}

// LogType maps the in/out byte: 0 is IN, anything else is OUT.
func (p PunchRecord) LogType() string {
	if p.InOutType == 0 {
		return LogTypeIn
	}

	return LogTypeOut
}

// Time converts the epoch timestamp into loc. A nil loc means time.Local.
func (p PunchRecord) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	return time.Unix(int64(p.Timestamp), 0).In(loc)
}

// Checkin is a stored attendance event. (Employee, Time, LogType) is unique.
type Checkin struct {
	ID       string    `json:"id,omitempty"`
	Employee string    `json:"employee"`
	Time     time.Time `json:"time"`
	LogType  string    `json:"log_type"`
	DeviceID string    `json:"device_id"`
}

// Key is the dedup key of the checkin.
func (c Checkin) Key() string {
	return c.Employee + "|" + c.Time.UTC().Format(time.RFC3339) + "|" + c.LogType
}
