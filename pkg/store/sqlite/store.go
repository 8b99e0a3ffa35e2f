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

// Package sqlite is an embedded single-file backend for the punch and
// attendance stores.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is how instants are stored. Fixed-width UTC keeps string
// comparison in range queries chronological.
const timeLayout = "2006-01-02T15:04:05Z"

const dateLayout = "2006-01-02"

var errEmptyPath = errors.New("sqlite: database path is required")

// Store implements the punch and attendance persistence interfaces on SQLite.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

var (
	_ punch.DeviceSource      = (*Store)(nil)
	_ punch.EmployeeDirectory = (*Store)(nil)
	_ punch.CheckinStore      = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errEmptyPath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One writer at a time; this also keeps a ":memory:" database alive on
	// a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, log: log.WithComponent("sqlite")}

	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.log.Info().Str("path", path).Msg("sqlite store ready")

	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnabledDevices lists the enabled rows of biometric_devices.
func (s *Store) EnabledDevices(ctx context.Context) ([]models.DeviceEndpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, device_ip, device_port FROM biometric_devices WHERE enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query biometric devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var devices []models.DeviceEndpoint

	for rows.Next() {
		ep := models.DeviceEndpoint{Enabled: true}
		if err := rows.Scan(&ep.Name, &ep.IP, &ep.Port); err != nil {
			return nil, fmt.Errorf("scan biometric device: %w", err)
		}

		if ep.Port == 0 {
			ep.Port = models.DefaultDevicePort
		}

		devices = append(devices, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate biometric devices: %w", err)
	}

	return devices, nil
}

// RegisterDevice inserts or replaces a row in biometric_devices.
func (s *Store) RegisterDevice(ctx context.Context, ep models.DeviceEndpoint) error {
	port := ep.Port
	if port == 0 {
		port = models.DefaultDevicePort
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO biometric_devices (name, device_ip, device_port, enabled)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
    device_ip = excluded.device_ip,
    device_port = excluded.device_port,
    enabled = excluded.enabled`,
		ep.Name, ep.IP, port, ep.Enabled)
	if err != nil {
		return fmt.Errorf("register device %s: %w", ep.Name, err)
	}

	return nil
}

// Lookup resolves a device user id through employees.attendance_device_id.
func (s *Store) Lookup(ctx context.Context, deviceUserID string) (string, bool, error) {
	var employee string

	err := s.db.QueryRowContext(ctx,
		`SELECT employee_id FROM employees WHERE attendance_device_id = ? LIMIT 1`, deviceUserID).Scan(&employee)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("lookup employee %s: %w", deviceUserID, err)
	}

	return employee, true, nil
}

// RegisterEmployee inserts or replaces an employee and its device user id.
func (s *Store) RegisterEmployee(ctx context.Context, employeeID, name, deviceUserID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO employees (employee_id, employee_name, attendance_device_id)
VALUES (?, ?, ?)
ON CONFLICT (employee_id) DO UPDATE SET
    employee_name = excluded.employee_name,
    attendance_device_id = excluded.attendance_device_id`,
		employeeID, name, deviceUserID)
	if err != nil {
		return fmt.Errorf("register employee %s: %w", employeeID, err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
