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

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

const (
	JobFleetSync        = "fleet-sync"
	JobAttendanceWindow = "attendance-window"
	JobAnomalySnapshot  = "anomaly-snapshot"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	errFleetSync  = errors.New("fleet sync failed")
)

// FleetSyncer is the fleet operation the sync job drives.
type FleetSyncer interface {
	SyncAllDevices(ctx context.Context) *models.FleetResult
}

// AttendanceProcessor is the daily work the attendance jobs drive.
type AttendanceProcessor interface {
	ProcessRecent(ctx context.Context, days int) (int, error)
	SummarizeYesterday(ctx context.Context) (*models.AnomalySummary, error)
}

// FleetSyncJob syncs every enabled device. A run fails only when the device
// list could not be loaded; per-device errors are logged.
func FleetSyncJob(fleet FleetSyncer, interval time.Duration, log logger.Logger) Job {
	return Job{
		Name:       JobFleetSync,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			result := fleet.SyncAllDevices(ctx)
			if !result.Success {
				return fmt.Errorf("%w: %s", errFleetSync, result.Message)
			}

			log.Info().
				Int("devices", result.DevicesSynced).
				Int("records", result.TotalRecords).
				Msg(result.Message)

			for _, e := range result.Errors {
				log.Error().Msg(e)
			}

			return nil
		},
	}
}

// AttendanceWindowJob rebuilds daily attendance for the last windowDays days.
func AttendanceWindowJob(p AttendanceProcessor, interval time.Duration, windowDays int) Job {
	return Job{
		Name:     JobAttendanceWindow,
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := p.ProcessRecent(ctx, windowDays)

			return err
		},
	}
}

// AnomalySnapshotJob summarizes yesterday's attendance irregularities.
func AnomalySnapshotJob(p AttendanceProcessor, interval time.Duration) Job {
	return Job{
		Name:     JobAnomalySnapshot,
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := p.SummarizeYesterday(ctx)

			return err
		},
	}
}

// FromConfig builds the standard job set. processor may be nil when no
// attendance repository is configured.
func FromConfig(cfg *punch.Config, fleet FleetSyncer, processor AttendanceProcessor, log logger.Logger, opts ...Option) (*Scheduler, error) {
	s := New(log, opts...)
	sched := cfg.Schedule

	if err := s.Add(FleetSyncJob(fleet, time.Duration(sched.SyncInterval), s.logger)); err != nil {
		return nil, err
	}

	if processor == nil || sched.DisableDailyJobs {
		return s, nil
	}

	if err := s.Add(AttendanceWindowJob(processor, time.Duration(sched.DailyInterval), sched.AttendanceWindowDays)); err != nil {
		return nil, err
	}

	if err := s.Add(AnomalySnapshotJob(processor, time.Duration(sched.DailyInterval))); err != nil {
		return nil, err
	}

	return s, nil
}
