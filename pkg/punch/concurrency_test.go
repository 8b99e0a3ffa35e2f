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
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/zk/zktest"
)

// rowLockStore behaves like a transactional database with a unique key: an
// insert of a key another open writer holds uncommitted waits until that
// writer commits or rolls back.
type rowLockStore struct {
	mu        sync.Mutex
	cond      *sync.Cond
	committed map[string]*models.Checkin
	owners    map[string]*rowLockWriter
	inserted  chan string
	blocked   chan string
}

func newRowLockStore() *rowLockStore {
	s := &rowLockStore{
		committed: make(map[string]*models.Checkin),
		owners:    make(map[string]*rowLockWriter),
		inserted:  make(chan string, 16),
		blocked:   make(chan string, 16),
	}
	s.cond = sync.NewCond(&s.mu)

	return s
}

func (s *rowLockStore) Writer(context.Context) (CheckinWriter, error) {
	return &rowLockWriter{store: s}, nil
}

func (s *rowLockStore) Checkins() []*models.Checkin {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Checkin, 0, len(s.committed))
	for _, c := range s.committed {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	return out
}

func notify(ch chan string, key string) {
	select {
	case ch <- key:
	default:
	}
}

type rowLockWriter struct {
	store *rowLockStore
	held  []*models.Checkin
}

func (w *rowLockWriter) Exists(_ context.Context, employee string, at time.Time, logType string) (bool, error) {
	key := models.Checkin{Employee: employee, Time: at, LogType: logType}.Key()

	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	_, ok := w.store.committed[key]

	return ok || w.store.owners[key] == w, nil
}

func (w *rowLockWriter) Insert(_ context.Context, c *models.Checkin) (bool, error) {
	key := c.Key()

	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	for {
		if _, ok := w.store.committed[key]; ok {
			return false, nil
		}

		owner := w.store.owners[key]
		if owner == nil {
			break
		}

		if owner == w {
			return false, nil
		}

		notify(w.store.blocked, key)
		w.store.cond.Wait()
	}

	w.store.owners[key] = w
	w.held = append(w.held, c)
	notify(w.store.inserted, key)

	return true, nil
}

func (w *rowLockWriter) Commit(context.Context) ([]*models.Checkin, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	stored := w.held
	w.held = nil

	for _, c := range stored {
		w.store.committed[c.Key()] = c
		delete(w.store.owners, c.Key())
	}

	w.store.cond.Broadcast()

	return stored, nil
}

func (w *rowLockWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	for _, c := range w.held {
		delete(w.store.owners, c.Key())
	}

	w.held = nil
	w.store.cond.Broadcast()

	return nil
}

func syncConcurrently(t *testing.T, syncer *Syncer, start func(i int), endpoints ...models.DeviceEndpoint) []*models.SyncResult {
	t.Helper()

	results := make([]*models.SyncResult, len(endpoints))
	done := make(chan struct{})

	var wg sync.WaitGroup

	for i, ep := range endpoints {
		if start != nil {
			start(i)
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = syncer.SyncDevice(context.Background(), ep)
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("device syncs did not finish")
	}

	return results
}

// The first device still holds its first checkin uncommitted when the second
// device reaches the same key, and then needs a key that hashes close to it.
func TestSyncDevice_OverlappingSyncsDoNotWaitOnEachOther(t *testing.T) {
	const later = baseTimestamp + 5400

	store := newRowLockStore()

	first := startDevice(t, zktest.Behavior{},
		models.PunchRecord{UserID: 7, Timestamp: baseTimestamp, InOutType: 0},
		models.PunchRecord{UserID: 8, Timestamp: later, InOutType: 0},
	)
	second := startDevice(t, zktest.Behavior{},
		models.PunchRecord{UserID: 7, Timestamp: baseTimestamp, InOutType: 0},
	)

	directory := funcDirectory(func(id string) (string, bool, error) {
		if id == "8" {
			select {
			case <-store.blocked:
			case <-time.After(2 * time.Second):
			}
		}

		return "E1", true, nil
	})

	syncer := newTestSyncer(directory, store, &sessionRecorder{})

	results := syncConcurrently(t, syncer, func(i int) {
		if i == 1 {
			select {
			case <-store.inserted:
			case <-time.After(2 * time.Second):
				t.Error("first device never inserted its checkin")
			}
		}
	}, first.Endpoint("first"), second.Endpoint("second"))

	require.True(t, results[0].Success, results[0].Message)
	require.True(t, results[1].Success, results[1].Message)
	assert.Equal(t, 2, results[0].Synced)
	assert.Equal(t, 0, results[1].Synced)
	assert.Empty(t, results[1].Errors)
	assert.Len(t, store.Checkins(), 2)
}

func TestSyncDevice_ConcurrentDevicesWithSamePunchesStoreEachOnce(t *testing.T) {
	punches := []models.PunchRecord{
		{UserID: 7, Timestamp: baseTimestamp, InOutType: 0},
		{UserID: 8, Timestamp: baseTimestamp + 120, InOutType: 0},
		{UserID: 7, Timestamp: baseTimestamp + 3600, InOutType: 1},
	}

	store := newRowLockStore()
	syncer := newTestSyncer(mapDirectory{"7": "EMP-001", "8": "EMP-002"}, store, &sessionRecorder{})

	endpoints := []models.DeviceEndpoint{
		startDevice(t, zktest.Behavior{}, punches...).Endpoint("front"),
		startDevice(t, zktest.Behavior{}, punches...).Endpoint("back"),
		startDevice(t, zktest.Behavior{}, punches...).Endpoint("side"),
	}

	results := syncConcurrently(t, syncer, nil, endpoints...)

	total := 0

	for _, r := range results {
		require.True(t, r.Success, r.Message)
		assert.Empty(t, r.Errors)

		total += r.Synced
	}

	assert.Equal(t, len(punches), total)

	checkins := store.Checkins()
	require.Len(t, checkins, len(punches))
	assert.Equal(t, "EMP-001", checkins[0].Employee)
	assert.Equal(t, "EMP-002", checkins[1].Employee)
	assert.Equal(t, models.LogTypeOut, checkins[2].LogType)
}

func TestSyncDevice_CheckinStoredElsewhereIsNotCounted(t *testing.T) {
	device := startDevice(t, zktest.Behavior{},
		models.PunchRecord{UserID: 7, Timestamp: baseTimestamp, InOutType: 0},
		models.PunchRecord{UserID: 7, Timestamp: baseTimestamp + 3600, InOutType: 1},
	)

	store := newMemStore()
	lookups := 0
	dir := funcDirectory(func(string) (string, bool, error) {
		lookups++
		if lookups == 2 {
			// another sync commits the first punch before this batch does
			at := time.Unix(baseTimestamp, 0).UTC()
			other := &models.Checkin{ID: "other", Employee: "EMP-001", Time: at, LogType: models.LogTypeIn}

			store.mu.Lock()
			store.rows[other.Key()] = other
			store.mu.Unlock()
		}

		return "EMP-001", true, nil
	})

	result := newTestSyncer(dir, store, &sessionRecorder{}).SyncDevice(context.Background(), device.Endpoint("d1"))

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, "Synced 1 attendance logs", result.Message)
	assert.Len(t, store.Checkins(), 2)
	assert.Equal(t, "other", store.Checkins()[0].ID)
}
