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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/punchsync/pkg/models"
)

const (
	upsertMaxAttempts = 3
	upsertRetryDelay  = 200 * time.Millisecond
)

const selectCheckinsBetweenSQL = `
SELECT id, employee, time, log_type, device_id
FROM employee_checkins
WHERE time >= $1 AND time < $2
ORDER BY employee, time`

// CheckinsBetween returns checkins in [from, to) ordered by employee and time.
func (s *Store) CheckinsBetween(ctx context.Context, from, to time.Time) ([]models.Checkin, error) {
	rows, err := s.executor.Query(ctx, selectCheckinsBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("query checkins: %w", err)
	}
	defer rows.Close()

	var checkins []models.Checkin

	for rows.Next() {
		var c models.Checkin
		if err := rows.Scan(&c.ID, &c.Employee, &c.Time, &c.LogType, &c.DeviceID); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}

		checkins = append(checkins, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkins: %w", err)
	}

	return checkins, nil
}

const upsertDailyAttendanceSQL = `
INSERT INTO daily_attendance (
    employee, attendance_date, first_in, last_out, punch_count, worked_seconds, status, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (employee, attendance_date) DO UPDATE SET
    first_in       = EXCLUDED.first_in,
    last_out       = EXCLUDED.last_out,
    punch_count    = EXCLUDED.punch_count,
    worked_seconds = EXCLUDED.worked_seconds,
    status         = EXCLUDED.status,
    updated_at     = now()`

// UpsertDailyAttendance writes the records in one batch, retrying the whole
// batch on deadlocks and serialization failures.
func (s *Store) UpsertDailyAttendance(ctx context.Context, records []*models.DailyAttendance) error {
	if len(records) == 0 {
		return nil
	}

	var err error

	for attempt := 1; attempt <= upsertMaxAttempts; attempt++ {
		batch := &pgx.Batch{}

		for _, r := range records {
			batch.Queue(upsertDailyAttendanceSQL,
				r.Employee,
				r.Date,
				r.FirstIn,
				r.LastOut,
				r.PunchCount,
				int64(r.Worked/time.Second),
				r.Status,
			)
		}

		err = sendBatchExecAll(ctx, s.executor, batch, "daily_attendance")
		if err == nil {
			return nil
		}

		code, transient := classifyError(err)
		if !transient || attempt == upsertMaxAttempts {
			break
		}

		s.log.Warn().
			Err(err).
			Str("sqlstate", code).
			Int("attempt", attempt).
			Msg("retrying daily attendance upsert")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(upsertRetryDelay * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("upsert daily attendance: %w", err)
}

func sendBatchExecAll(ctx context.Context, db executor, batch *pgx.Batch, operation string) (err error) {
	br := db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", operation, i, err)
		}
	}

	return nil
}
