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

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/models"
)

func TestCheckinsBetween(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]any{
		{"c1", "EMP-001", at, models.LogTypeIn, "front"},
		{"c2", "EMP-001", at.Add(8 * time.Hour), models.LogTypeOut, "front"},
	}}
	s, _ := newTestStore(&fakeExecutor{rows: rows})

	checkins, err := s.CheckinsBetween(context.Background(), at.Add(-time.Hour), at.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, checkins, 2)
	assert.Equal(t, models.Checkin{ID: "c1", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn, DeviceID: "front"}, checkins[0])
	assert.Equal(t, models.LogTypeOut, checkins[1].LogType)
}

func dailyRecords() []*models.DailyAttendance {
	return []*models.DailyAttendance{
		{Employee: "EMP-001", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PunchCount: 2, Worked: 8 * time.Hour, Status: models.AttendancePresent},
		{Employee: "EMP-002", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PunchCount: 1, Status: models.AttendanceIncomplete},
	}
}

func TestUpsertDailyAttendance(t *testing.T) {
	br := &fakeBatchResults{}
	exec := &fakeExecutor{batches: []*fakeBatchResults{br}}
	s, _ := newTestStore(exec)

	require.NoError(t, s.UpsertDailyAttendance(context.Background(), dailyRecords()))
	assert.Equal(t, []int{2}, exec.queued)
	assert.Equal(t, 2, br.execCalls)
	assert.Equal(t, 1, br.closeCalls)
}

func TestUpsertDailyAttendanceEmpty(t *testing.T) {
	exec := &fakeExecutor{}
	s, _ := newTestStore(exec)

	require.NoError(t, s.UpsertDailyAttendance(context.Background(), nil))
	assert.Zero(t, exec.batchCalls)
}

func TestUpsertDailyAttendanceRetriesDeadlock(t *testing.T) {
	exec := &fakeExecutor{batches: []*fakeBatchResults{
		{execErrAt: 1, execErr: &pgconn.PgError{Code: sqlStateDeadlock}},
		{},
	}}
	s, _ := newTestStore(exec)

	require.NoError(t, s.UpsertDailyAttendance(context.Background(), dailyRecords()))
	assert.Equal(t, 2, exec.batchCalls)
	assert.Equal(t, 1, exec.batches[0].closeCalls)
}

func TestUpsertDailyAttendanceSurfacesPermanentErrors(t *testing.T) {
	exec := &fakeExecutor{batches: []*fakeBatchResults{
		{execErrAt: 0, execErr: &pgconn.PgError{Code: "23502"}},
	}}
	s, _ := newTestStore(exec)

	err := s.UpsertDailyAttendance(context.Background(), dailyRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_attendance batch exec (command 0)")
	assert.Equal(t, 1, exec.batchCalls)
}
