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
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/zk"
	"github.com/carverauto/punchsync/pkg/zk/zktest"
)

var errCommitRejected = errors.New("commit rejected")

// memStore is a CheckinStore that keeps committed rows in memory.
type memStore struct {
	mu          sync.Mutex
	rows        map[string]*models.Checkin
	commits     int
	failCommits map[int]bool
}

func newMemStore() *memStore {
	return &memStore{
		rows:        make(map[string]*models.Checkin),
		failCommits: make(map[int]bool),
	}
}

func (s *memStore) Writer(context.Context) (CheckinWriter, error) {
	return &memWriter{store: s, pending: make(map[string]*models.Checkin)}, nil
}

func (s *memStore) Checkins() []*models.Checkin {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Checkin, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	return out
}

func (s *memStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commits
}

type memWriter struct {
	store   *memStore
	pending map[string]*models.Checkin
}

func (w *memWriter) Exists(_ context.Context, employee string, at time.Time, logType string) (bool, error) {
	key := models.Checkin{Employee: employee, Time: at, LogType: logType}.Key()

	if _, ok := w.pending[key]; ok {
		return true, nil
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	_, ok := w.store.rows[key]

	return ok, nil
}

func (w *memWriter) Insert(ctx context.Context, c *models.Checkin) (bool, error) {
	exists, _ := w.Exists(ctx, c.Employee, c.Time, c.LogType)
	if exists {
		return false, nil
	}

	w.pending[c.Key()] = c

	return true, nil
}

func (w *memWriter) Commit(context.Context) ([]*models.Checkin, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	w.store.commits++

	pending := w.pending
	w.pending = make(map[string]*models.Checkin)

	if w.store.failCommits[w.store.commits] {
		return nil, errCommitRejected
	}

	stored := make([]*models.Checkin, 0, len(pending))

	for key, c := range pending {
		if _, ok := w.store.rows[key]; ok {
			continue
		}

		w.store.rows[key] = c
		stored = append(stored, c)
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].Time.Before(stored[j].Time) })

	return stored, nil
}

func (w *memWriter) Close() error {
	w.pending = nil

	return nil
}

type mapDirectory map[string]string

func (d mapDirectory) Lookup(_ context.Context, id string) (string, bool, error) {
	employee, ok := d[id]

	return employee, ok, nil
}

type funcDirectory func(id string) (string, bool, error)

func (f funcDirectory) Lookup(_ context.Context, id string) (string, bool, error) {
	return f(id)
}

// sessionRecorder is a ChannelFactory that remembers every session it made.
type sessionRecorder struct {
	mu       sync.Mutex
	sessions []*zk.Session
}

func (r *sessionRecorder) factory(ep models.DeviceEndpoint, timeout time.Duration, log logger.Logger) zk.Channel {
	s := zk.NewSession(ep.IP, ep.Port, timeout, log)

	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()

	return s
}

func (r *sessionRecorder) requireAllDisconnected(t *testing.T) {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.sessions)

	for _, s := range r.sessions {
		require.Equal(t, zk.StateDisconnected, s.State(), "session %s", s.Address())
	}
}

func startDevice(t *testing.T, behavior zktest.Behavior, records ...models.PunchRecord) *zktest.Device {
	t.Helper()

	device, err := zktest.NewDevice(behavior, records...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = device.Close() })

	return device
}

func newTestSyncer(dir EmployeeDirectory, store CheckinStore, rec *sessionRecorder, opts ...SyncerOption) *Syncer {
	base := []SyncerOption{
		WithChannelFactory(rec.factory),
		WithLocation(time.UTC),
		WithTimeout(200 * time.Millisecond),
	}

	return NewSyncer(dir, store, logger.NewTestLogger(), append(base, opts...)...)
}
