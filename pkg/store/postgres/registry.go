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
	"fmt"

	"github.com/carverauto/punchsync/pkg/models"
)

const upsertDeviceSQL = `
INSERT INTO biometric_devices (name, device_ip, device_port, enabled)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET
    device_ip = EXCLUDED.device_ip,
    device_port = EXCLUDED.device_port,
    enabled = EXCLUDED.enabled`

// RegisterDevice inserts or updates a biometric_devices row keyed by name.
func (s *Store) RegisterDevice(ctx context.Context, ep models.DeviceEndpoint) error {
	port := ep.Port
	if port == 0 {
		port = models.DefaultDevicePort
	}

	if _, err := s.executor.Exec(ctx, upsertDeviceSQL, ep.Name, ep.IP, int32(port), ep.Enabled); err != nil { //nolint:gosec // port is range checked by callers
		return fmt.Errorf("register device %s: %w", ep.Name, err)
	}

	return nil
}

const upsertEmployeeSQL = `
INSERT INTO employees (employee_id, employee_name, attendance_device_id)
VALUES ($1, $2, $3)
ON CONFLICT (employee_id) DO UPDATE SET
    employee_name = EXCLUDED.employee_name,
    attendance_device_id = EXCLUDED.attendance_device_id`

// RegisterEmployee maps a device user id to an employee record.
func (s *Store) RegisterEmployee(ctx context.Context, employeeID, name, deviceUserID string) error {
	if _, err := s.executor.Exec(ctx, upsertEmployeeSQL, employeeID, name, deviceUserID); err != nil {
		return fmt.Errorf("register employee %s: %w", employeeID, err)
	}

	return nil
}
