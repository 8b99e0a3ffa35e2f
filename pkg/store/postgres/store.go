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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

// executor is the query surface shared by *pgxpool.Pool and pgx.Tx.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// txn is the part of pgx.Tx a checkin writer drives.
type txn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store implements the punch and attendance persistence interfaces on
// PostgreSQL.
type Store struct {
	executor executor
	begin    func(ctx context.Context) (txn, error)
	log      logger.Logger
}

var (
	_ punch.DeviceSource      = (*Store)(nil)
	_ punch.EmployeeDirectory = (*Store)(nil)
	_ punch.CheckinStore      = (*Store)(nil)
)

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool, log logger.Logger) (*Store, error) {
	if pool == nil {
		return nil, errNilPool
	}

	return &Store{
		executor: pool,
		begin: func(ctx context.Context) (txn, error) {
			return pool.Begin(ctx)
		},
		log: log.WithComponent("postgres"),
	}, nil
}

const selectEnabledDevicesSQL = `
SELECT name, device_ip, device_port
FROM biometric_devices
WHERE enabled
ORDER BY name`

// EnabledDevices lists the enabled rows of biometric_devices.
func (s *Store) EnabledDevices(ctx context.Context) ([]models.DeviceEndpoint, error) {
	rows, err := s.executor.Query(ctx, selectEnabledDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("query biometric devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceEndpoint

	for rows.Next() {
		var (
			ep   models.DeviceEndpoint
			port int32
		)

		if err := rows.Scan(&ep.Name, &ep.IP, &port); err != nil {
			return nil, fmt.Errorf("scan biometric device: %w", err)
		}

		ep.Port = int(port)
		if ep.Port == 0 {
			ep.Port = models.DefaultDevicePort
		}

		ep.Enabled = true
		devices = append(devices, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate biometric devices: %w", err)
	}

	return devices, nil
}

const selectEmployeeSQL = `
SELECT employee_id
FROM employees
WHERE attendance_device_id = $1
LIMIT 1`

// Lookup resolves a device user id through employees.attendance_device_id.
func (s *Store) Lookup(ctx context.Context, deviceUserID string) (string, bool, error) {
	var employee string

	err := s.executor.QueryRow(ctx, selectEmployeeSQL, deviceUserID).Scan(&employee)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("lookup employee %s: %w", deviceUserID, err)
	}

	return employee, true, nil
}

// Writer returns a transaction-backed checkin writer. The transaction is
// opened on first use and reopened after each Commit.
func (s *Store) Writer(_ context.Context) (punch.CheckinWriter, error) {
	return &checkinWriter{begin: s.begin, log: s.log}, nil
}

const (
	checkinExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM employee_checkins
    WHERE employee = $1 AND time = $2 AND log_type = $3
)`

	insertCheckinSQL = `
INSERT INTO employee_checkins (id, employee, time, log_type, device_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (employee, time, log_type) DO NOTHING`

	savepointSQL         = `SAVEPOINT punch_insert`
	releaseSavepointSQL  = `RELEASE SAVEPOINT punch_insert`
	rollbackSavepointSQL = `ROLLBACK TO SAVEPOINT punch_insert`
)

type checkinWriter struct {
	begin    func(ctx context.Context) (txn, error)
	tx       txn
	inserted []*models.Checkin
	log      logger.Logger
}

func (w *checkinWriter) current(ctx context.Context) (txn, error) {
	if w.tx != nil {
		return w.tx, nil
	}

	tx, err := w.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin checkin transaction: %w", err)
	}

	w.tx = tx

	return tx, nil
}

func (w *checkinWriter) Exists(ctx context.Context, employee string, at time.Time, logType string) (bool, error) {
	tx, err := w.current(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, checkinExistsSQL, employee, at, logType).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing checkin: %w", err)
	}

	return exists, nil
}

// Insert runs under a savepoint so a failed statement leaves the rest of the
// batch usable.
func (w *checkinWriter) Insert(ctx context.Context, c *models.Checkin) (bool, error) {
	tx, err := w.current(ctx)
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, savepointSQL); err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}

	tag, err := tx.Exec(ctx, insertCheckinSQL, c.ID, c.Employee, c.Time, c.LogType, c.DeviceID)
	if err != nil {
		if _, rbErr := tx.Exec(ctx, rollbackSavepointSQL); rbErr != nil {
			w.log.Warn().Err(rbErr).Msg("rollback to savepoint failed")
		}

		if isUniqueViolation(err) {
			return false, nil
		}

		return false, fmt.Errorf("insert checkin: %w", err)
	}

	if _, err := tx.Exec(ctx, releaseSavepointSQL); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}

	if tag.RowsAffected() != 1 {
		return false, nil
	}

	w.inserted = append(w.inserted, c)

	return true, nil
}

// Commit returns the rows this transaction inserted. ON CONFLICT already
// skipped any key another transaction committed first.
func (w *checkinWriter) Commit(ctx context.Context) ([]*models.Checkin, error) {
	if w.tx == nil {
		return nil, nil
	}

	tx, inserted := w.tx, w.inserted
	w.tx, w.inserted = nil, nil

	if err := tx.Commit(ctx); err != nil {
		code, transient := classifyError(err)
		w.log.Warn().Err(err).Str("sqlstate", code).Bool("transient", transient).Msg("checkin commit failed")

		return nil, fmt.Errorf("commit checkins: %w", err)
	}

	return inserted, nil
}

// Close rolls back anything not yet committed.
func (w *checkinWriter) Close() error {
	if w.tx == nil {
		return nil
	}

	tx := w.tx
	w.tx, w.inserted = nil, nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback checkins: %w", err)
	}

	return nil
}
