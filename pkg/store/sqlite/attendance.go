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
	"fmt"
	"time"

	"github.com/carverauto/punchsync/pkg/models"
)

// CheckinsBetween returns checkins in [from, to) ordered by employee and time.
func (s *Store) CheckinsBetween(ctx context.Context, from, to time.Time) ([]models.Checkin, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, employee, time, log_type, device_id
FROM employee_checkins
WHERE time >= ? AND time < ?
ORDER BY employee, time`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query checkins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checkins []models.Checkin

	for rows.Next() {
		var (
			c  models.Checkin
			at string
		)

		if err := rows.Scan(&c.ID, &c.Employee, &at, &c.LogType, &c.DeviceID); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}

		if c.Time, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse checkin time %q: %w", at, err)
		}

		checkins = append(checkins, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkins: %w", err)
	}

	return checkins, nil
}

// UpsertDailyAttendance writes the records in one transaction.
func (s *Store) UpsertDailyAttendance(ctx context.Context, records []*models.DailyAttendance) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin daily attendance transaction: %w", err)
	}

	for _, r := range records {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_attendance (
    employee, attendance_date, first_in, last_out, punch_count, worked_seconds, status, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (employee, attendance_date) DO UPDATE SET
    first_in = excluded.first_in,
    last_out = excluded.last_out,
    punch_count = excluded.punch_count,
    worked_seconds = excluded.worked_seconds,
    status = excluded.status,
    updated_at = excluded.updated_at`,
			r.Employee,
			r.Date.Format(dateLayout),
			nullableTime(r.FirstIn),
			nullableTime(r.LastOut),
			r.PunchCount,
			int64(r.Worked/time.Second),
			r.Status,
			formatTime(time.Now()),
		); err != nil {
			_ = rollback(tx)

			return fmt.Errorf("upsert daily attendance %s/%s: %w", r.Employee, r.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit daily attendance: %w", err)
	}

	return nil
}

// DailyAttendance returns the stored rows for one calendar date.
func (s *Store) DailyAttendance(ctx context.Context, date time.Time) ([]*models.DailyAttendance, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT employee, first_in, last_out, punch_count, worked_seconds, status
FROM daily_attendance
WHERE attendance_date = ?
ORDER BY employee`, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query daily attendance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.DailyAttendance

	for rows.Next() {
		var (
			r               = &models.DailyAttendance{Date: date}
			firstIn, lastIn sql.NullString
			worked          int64
		)

		if err := rows.Scan(&r.Employee, &firstIn, &lastIn, &r.PunchCount, &worked, &r.Status); err != nil {
			return nil, fmt.Errorf("scan daily attendance: %w", err)
		}

		if r.FirstIn, err = scanNullableTime(firstIn); err != nil {
			return nil, err
		}

		if r.LastOut, err = scanNullableTime(lastIn); err != nil {
			return nil, err
		}

		r.Worked = time.Duration(worked) * time.Second
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily attendance: %w", err)
	}

	return out, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return formatTime(*t)
}

func scanNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}

	t, err := parseTime(v.String)
	if err != nil {
		return nil, fmt.Errorf("parse attendance time %q: %w", v.String, err)
	}

	return &t, nil
}
