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

// Package boltdb persists per-device sync history in a local bbolt file.
package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

var bucketDeviceState = []byte("device_state")

var errEmptyDevice = errors.New("device state requires a device name")

// StateStore implements punch.StateStore. Keys are device display names and
// values are JSON-encoded models.DeviceSyncState.
type StateStore struct {
	db *bbolt.DB
}

var _ punch.StateStore = (*StateStore)(nil)

// Open opens or creates the state file at path.
func Open(path string) (*StateStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeviceState)

		return err
	}); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create device state bucket: %w", err)
	}

	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *StateStore) Get(_ context.Context, device string) (*models.DeviceSyncState, bool, error) {
	var state *models.DeviceSyncState

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDeviceState).Get([]byte(device))
		if raw == nil {
			return nil
		}

		state = &models.DeviceSyncState{}

		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, false, fmt.Errorf("read state for %s: %w", device, err)
	}

	return state, state != nil, nil
}

func (s *StateStore) Put(_ context.Context, state *models.DeviceSyncState) error {
	if state == nil || state.Device == "" {
		return errEmptyDevice
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", state.Device, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDeviceState).Put([]byte(state.Device), raw)
	})
}

// List returns every stored state in key order.
func (s *StateStore) List(_ context.Context) ([]*models.DeviceSyncState, error) {
	var states []*models.DeviceSyncState

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDeviceState).ForEach(func(k, v []byte) error {
			state := &models.DeviceSyncState{}
			if err := json.Unmarshal(v, state); err != nil {
				return fmt.Errorf("decode state for %s: %w", k, err)
			}

			states = append(states, state)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return states, nil
}
