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

package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/models"
)

func setupTestStore(t *testing.T) (*StateStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func TestGetMissing(t *testing.T) {
	s, _ := setupTestStore(t)

	state, found, err := s.Get(context.Background(), "front")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, state)
}

func TestPutGetList(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	front := &models.DeviceSyncState{Device: "front", Address: "10.0.0.5:4370"}
	front.Apply(&models.SyncResult{Success: true, Synced: 3}, at)

	back := &models.DeviceSyncState{Device: "back", Address: "10.0.0.6:4370"}
	back.Apply(&models.SyncResult{Success: false, Message: "Failed to connect to device at 10.0.0.6:4370"}, at)

	require.NoError(t, s.Put(ctx, front))
	require.NoError(t, s.Put(ctx, back))

	got, found, err := s.Get(ctx, "front")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), got.TotalSynced)
	assert.True(t, got.LastSuccess.Equal(at))

	states, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "back", states[0].Device)
	assert.Equal(t, 1, states[0].ConsecutiveFailures)
	assert.Equal(t, "front", states[1].Device)
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := setupTestStore(t)

	require.NoError(t, s.Put(ctx, &models.DeviceSyncState{Device: "front", TotalSynced: 10}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	got, found, err := reopened.Get(ctx, "front")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(10), got.TotalSynced)
}

func TestPutRequiresDevice(t *testing.T) {
	s, _ := setupTestStore(t)

	require.ErrorIs(t, s.Put(context.Background(), &models.DeviceSyncState{}), errEmptyDevice)
	require.ErrorIs(t, s.Put(context.Background(), nil), errEmptyDevice)
}
