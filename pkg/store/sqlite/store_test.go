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

package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
	"github.com/carverauto/punchsync/pkg/zk/zktest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), ":memory:", logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "", logger.NewTestLogger())
	require.ErrorIs(t, err, errEmptyPath)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := t.TempDir() + "/punchsync.db"

	s, err := Open(context.Background(), path, logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.RegisterEmployee(context.Background(), "EMP-001", "Ada", "1"))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path, logger.NewTestLogger())
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	employee, found, err := s.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "EMP-001", employee)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.RegisterEmployee(ctx, "EMP-001", "Ada", "7"))

	employee, found, err := s.Lookup(ctx, "7")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "EMP-001", employee)

	_, found, err = s.Lookup(ctx, "8")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEnabledDevices(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.RegisterDevice(ctx, models.DeviceEndpoint{Name: "front", IP: "10.0.0.5", Enabled: true}))
	require.NoError(t, s.RegisterDevice(ctx, models.DeviceEndpoint{Name: "back", IP: "10.0.0.6", Port: 4371, Enabled: true}))
	require.NoError(t, s.RegisterDevice(ctx, models.DeviceEndpoint{Name: "old", IP: "10.0.0.7", Enabled: false}))

	devices, err := s.EnabledDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.DeviceEndpoint{
		{Name: "back", IP: "10.0.0.6", Port: 4371, Enabled: true},
		{Name: "front", IP: "10.0.0.5", Port: models.DefaultDevicePort, Enabled: true},
	}, devices)
}

func TestCheckinWriterStagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	w, err := s.Writer(ctx)
	require.NoError(t, err)

	c := &models.Checkin{ID: "c1", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn, DeviceID: "front"}

	inserted, err := w.Insert(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := w.Exists(ctx, c.Employee, at, c.LogType)
	require.NoError(t, err)
	assert.True(t, exists, "staged rows are visible to the same writer")

	inserted, err = w.Insert(ctx, &models.Checkin{ID: "c2", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn})
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate key in the same batch")

	stored, err := s.CheckinsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stored)

	written, err := w.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*models.Checkin{c}, written)
	require.NoError(t, w.Close())

	stored, err = s.CheckinsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "c1", stored[0].ID)
	assert.True(t, stored[0].Time.Equal(at))

	other, err := s.Writer(ctx)
	require.NoError(t, err)

	exists, err = other.Exists(ctx, c.Employee, at.In(time.FixedZone("x", 3600)), c.LogType)
	require.NoError(t, err)
	assert.True(t, exists, "same instant in another zone is the same key")
}

func TestCheckinWriterCloseDiscardsStaged(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	w, err := s.Writer(ctx)
	require.NoError(t, err)

	_, err = w.Insert(ctx, &models.Checkin{ID: "c1", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	stored, err := s.CheckinsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCheckinWriterCommitFailure(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	w, err := s.Writer(ctx)
	require.NoError(t, err)

	_, err = w.Insert(ctx, &models.Checkin{ID: "c1", Employee: "EMP-001", Time: time.Now(), LogType: models.LogTypeIn})
	require.NoError(t, err)

	require.NoError(t, s.Close())

	written, err := w.Commit(ctx)
	require.Error(t, err)
	assert.Nil(t, written)
}

func TestCheckinWriterCommitSkipsRowsStoredByAnotherWriter(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	first, err := s.Writer(ctx)
	require.NoError(t, err)

	second, err := s.Writer(ctx)
	require.NoError(t, err)

	shared := &models.Checkin{ID: "a1", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn, DeviceID: "front"}
	dup := &models.Checkin{ID: "b1", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn, DeviceID: "back"}
	own := &models.Checkin{ID: "b2", Employee: "EMP-001", Time: at.Add(8 * time.Hour), LogType: models.LogTypeOut, DeviceID: "back"}

	for _, step := range []struct {
		w punch.CheckinWriter
		c *models.Checkin
	}{{first, shared}, {second, dup}, {second, own}} {
		inserted, err := step.w.Insert(ctx, step.c)
		require.NoError(t, err)
		require.True(t, inserted, "nothing is committed yet")
	}

	written, err := first.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*models.Checkin{shared}, written)

	written, err = second.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*models.Checkin{own}, written)

	stored, err := s.CheckinsBetween(ctx, at.Add(-time.Hour), at.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "a1", stored[0].ID)
	assert.Equal(t, "b2", stored[1].ID)
}

func TestDailyAttendanceUpsert(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := day.Add(9 * time.Hour)

	require.NoError(t, s.UpsertDailyAttendance(ctx, []*models.DailyAttendance{
		{Employee: "EMP-001", Date: day, FirstIn: &in, PunchCount: 1, Status: models.AttendanceIncomplete},
	}))

	out := day.Add(17 * time.Hour)
	require.NoError(t, s.UpsertDailyAttendance(ctx, []*models.DailyAttendance{
		{Employee: "EMP-001", Date: day, FirstIn: &in, LastOut: &out, PunchCount: 2, Worked: 8 * time.Hour, Status: models.AttendancePresent},
	}))

	rows, err := s.DailyAttendance(ctx, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, models.AttendancePresent, rows[0].Status)
	assert.Equal(t, 2, rows[0].PunchCount)
	assert.Equal(t, 8*time.Hour, rows[0].Worked)
	require.NotNil(t, rows[0].LastOut)
	assert.True(t, rows[0].LastOut.Equal(out))
}

func TestSyncDeviceAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.RegisterEmployee(ctx, "EMP-001", "Ada", "7"))

	const ts = 1700000000

	device, err := zktest.NewDevice(zktest.Behavior{},
		models.PunchRecord{UserID: 7, Timestamp: ts, InOutType: 0},
		models.PunchRecord{UserID: 7, Timestamp: ts + 3600, InOutType: 1},
		models.PunchRecord{UserID: 99, Timestamp: ts + 60, InOutType: 0},
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = device.Close() })

	syncer := punch.NewSyncer(s, s, logger.NewTestLogger(), punch.WithTimeout(time.Second), punch.WithLocation(time.UTC))

	result := syncer.SyncDevice(ctx, device.Endpoint("front"))
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Synced)

	again := syncer.SyncDevice(ctx, device.Endpoint("front"))
	require.True(t, again.Success)
	assert.Equal(t, 0, again.Synced)

	stored, err := s.CheckinsBetween(ctx, time.Unix(ts, 0), time.Unix(ts+7200, 0))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.LogTypeIn, stored[0].LogType)
	assert.Equal(t, models.LogTypeOut, stored[1].LogType)
}

func TestConcurrentSyncsOfOverlappingDevicesStoreEachPunchOnce(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.RegisterEmployee(ctx, "EMP-001", "Ada", "7"))
	require.NoError(t, s.RegisterEmployee(ctx, "EMP-002", "Grace", "8"))

	const ts = 1700000000

	punches := []models.PunchRecord{
		{UserID: 7, Timestamp: ts, InOutType: 0},
		{UserID: 8, Timestamp: ts + 120, InOutType: 0},
		{UserID: 7, Timestamp: ts + 3600, InOutType: 1},
	}

	var endpoints []models.DeviceEndpoint

	for _, name := range []string{"front", "back"} {
		device, err := zktest.NewDevice(zktest.Behavior{}, punches...)
		require.NoError(t, err)

		t.Cleanup(func() { _ = device.Close() })

		endpoints = append(endpoints, device.Endpoint(name))
	}

	syncer := punch.NewSyncer(s, s, logger.NewTestLogger(), punch.WithTimeout(time.Second), punch.WithLocation(time.UTC))

	results := make([]*models.SyncResult, len(endpoints))

	var wg sync.WaitGroup

	for i, ep := range endpoints {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = syncer.SyncDevice(ctx, ep)
		}()
	}

	wg.Wait()

	total := 0

	for _, r := range results {
		require.True(t, r.Success, r.Message)
		assert.Empty(t, r.Errors)

		total += r.Synced
	}

	assert.Equal(t, len(punches), total)

	stored, err := s.CheckinsBetween(ctx, time.Unix(ts, 0), time.Unix(ts+7200, 0))
	require.NoError(t, err)
	require.Len(t, stored, len(punches))

	seen := make(map[string]bool)
	for _, c := range stored {
		assert.False(t, seen[c.Key()], "duplicate checkin %s", c.Key())
		seen[c.Key()] = true
	}
}
