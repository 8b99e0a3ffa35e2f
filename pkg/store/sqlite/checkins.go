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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

const checkinExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM employee_checkins
    WHERE employee = ? AND time = ? AND log_type = ?
)`

// Writer returns a writer that stages checkins in memory and writes each
// batch in one transaction on Commit.
func (s *Store) Writer(_ context.Context) (punch.CheckinWriter, error) {
	return &checkinWriter{db: s.db, pending: make(map[string]*models.Checkin)}, nil
}

type checkinWriter struct {
	db      *sql.DB
	order   []string
	pending map[string]*models.Checkin
}

func (w *checkinWriter) Exists(ctx context.Context, employee string, at time.Time, logType string) (bool, error) {
	key := models.Checkin{Employee: employee, Time: at, LogType: logType}.Key()
	if _, ok := w.pending[key]; ok {
		return true, nil
	}

	var exists bool
	if err := w.db.QueryRowContext(ctx, checkinExistsSQL, employee, formatTime(at), logType).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing checkin: %w", err)
	}

	return exists, nil
}

func (w *checkinWriter) Insert(ctx context.Context, c *models.Checkin) (bool, error) {
	exists, err := w.Exists(ctx, c.Employee, c.Time, c.LogType)
	if err != nil || exists {
		return false, err
	}

	key := c.Key()
	w.pending[key] = c
	w.order = append(w.order, key)

	return true, nil
}

// Commit writes the staged batch in one transaction and returns the rows
// that were stored. A row another writer committed first is skipped by ON
// CONFLICT and left out of the result.
func (w *checkinWriter) Commit(ctx context.Context) (stored []*models.Checkin, err error) {
	if len(w.order) == 0 {
		return nil, nil
	}

	defer w.reset()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			stored = nil
			err = errors.Join(err, rollback(tx))
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO employee_checkins (id, employee, time, log_type, device_id)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (employee, time, log_type) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("prepare checkin insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stored = make([]*models.Checkin, 0, len(w.order))

	for _, key := range w.order {
		c := w.pending[key]

		res, execErr := stmt.ExecContext(ctx, c.ID, c.Employee, formatTime(c.Time), c.LogType, c.DeviceID)
		if execErr != nil {
			return nil, fmt.Errorf("insert checkin %s: %w", key, execErr)
		}

		n, execErr := res.RowsAffected()
		if execErr != nil {
			return nil, fmt.Errorf("insert checkin %s: %w", key, execErr)
		}

		if n == 1 {
			stored = append(stored, c)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkins: %w", err)
	}

	return stored, nil
}

// Close discards staged checkins that were never committed.
func (w *checkinWriter) Close() error {
	w.reset()

	return nil
}

func (w *checkinWriter) reset() {
	w.order = w.order[:0]
	clear(w.pending)
}

func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback checkins: %w", err)
	}

	return nil
}
