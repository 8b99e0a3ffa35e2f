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
	AttendancePresent    = "Present"
	AttendanceIncomplete = "Incomplete"
)

// DailyAttendance is one employee's punches for one calendar day.
type DailyAttendance struct {
	Employee   string        `json:"employee"`
	Date       time.Time     `json:"date"`
	FirstIn    *time.Time    `json:"first_in,omitempty"`
	LastOut    *time.Time    `json:"last_out,omitempty"`
	PunchCount int           `json:"punch_count"`
	Worked     time.Duration `json:"worked"`
	Status     string        `json:"status"`
}

type AnomalyKind string

const (
	AnomalyMissingIn  AnomalyKind = "missing_in"
	AnomalyMissingOut AnomalyKind = "missing_out"
	AnomalyOddPunches AnomalyKind = "odd_punch_count"
)

type Anomaly struct {
	Employee string      `json:"employee"`
	Kind     AnomalyKind `json:"kind"`
}

// AnomalySummary is the daily snapshot of attendance irregularities.
type AnomalySummary struct {
	Date       time.Time `json:"date"`
	Employees  int       `json:"employees"`
	MissingIn  int       `json:"missing_in"`
	MissingOut int       `json:"missing_out"`
	OddPunches int       `json:"odd_punches"`
	Anomalies  []Anomaly `json:"anomalies,omitempty"`
}
