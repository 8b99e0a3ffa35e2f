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

// Package attendance rolls stored checkins up into per-employee daily
// attendance and flags irregular days.
package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

// Repository is the storage the processor reads checkins from and writes
// daily rows to.
type Repository interface {
	CheckinsBetween(ctx context.Context, from, to time.Time) ([]models.Checkin, error)
	UpsertDailyAttendance(ctx context.Context, records []*models.DailyAttendance) error
}

// Notifier announces processed windows and anomaly snapshots.
type Notifier interface {
	PublishAnomalySummary(ctx context.Context, summary *models.AnomalySummary) error
	PublishAttendanceWindow(ctx context.Context, from, to time.Time, records int) error
}

type Processor struct {
	repo     Repository
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	log      logger.Logger
}

type Option func(*Processor)

func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithLocation sets the zone that decides calendar days.
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(repo Repository, log logger.Logger, opts ...Option) *Processor {
	p := &Processor{
		repo: repo,
		loc:  time.Local,
		now:  time.Now,
		log:  log.WithComponent("attendance"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessWindow rebuilds daily attendance for every calendar day from the
// day of from through the day of to, inclusive. It returns the number of
// employee-day rows written.
func (p *Processor) ProcessWindow(ctx context.Context, from, to time.Time) (int, error) {
	start := startOfDay(from, p.loc)
	end := startOfDay(to, p.loc).AddDate(0, 0, 1)

	if !end.After(start) {
		return 0, fmt.Errorf("%w: %s is before %s", errEmptyWindow, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	checkins, err := p.repo.CheckinsBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("load checkins: %w", err)
	}

	records := BuildDaily(checkins, p.loc)

	if err := p.repo.UpsertDailyAttendance(ctx, records); err != nil {
		return 0, fmt.Errorf("store daily attendance: %w", err)
	}

	p.log.Info().
		Str("from", start.Format(time.DateOnly)).
		Str("to", end.AddDate(0, 0, -1).Format(time.DateOnly)).
		Int("checkins", len(checkins)).
		Int("records", len(records)).
		Msgf("Processed attendance for %d employee-days", len(records))

	if p.notifier != nil {
		if err := p.notifier.PublishAttendanceWindow(ctx, start, end, len(records)); err != nil {
			p.log.Warn().Err(err).Msg("failed to publish attendance window event")
		}
	}

	return len(records), nil
}

// ProcessRecent processes the last days calendar days ending today.
func (p *Processor) ProcessRecent(ctx context.Context, days int) (int, error) {
	if days < 1 {
		days = 1
	}

	today := p.now().In(p.loc)

	return p.ProcessWindow(ctx, today.AddDate(0, 0, -(days-1)), today)
}

// SummarizeDay computes the anomaly snapshot for one calendar day.
func (p *Processor) SummarizeDay(ctx context.Context, day time.Time) (*models.AnomalySummary, error) {
	start := startOfDay(day, p.loc)

	checkins, err := p.repo.CheckinsBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load checkins: %w", err)
	}

	summary := Summarize(start, BuildDaily(checkins, p.loc))

	p.log.Info().
		Str("date", start.Format(time.DateOnly)).
		Int("employees", summary.Employees).
		Int("missing_in", summary.MissingIn).
		Int("missing_out", summary.MissingOut).
		Int("odd_punches", summary.OddPunches).
		Msg("Generated daily anomaly snapshot")

	if p.notifier != nil {
		if err := p.notifier.PublishAnomalySummary(ctx, summary); err != nil {
			p.log.Warn().Err(err).Msg("failed to publish anomaly snapshot")
		}
	}

	return summary, nil
}

// SummarizeYesterday is SummarizeDay for the previous calendar day.
func (p *Processor) SummarizeYesterday(ctx context.Context) (*models.AnomalySummary, error) {
	return p.SummarizeDay(ctx, p.now().In(p.loc).AddDate(0, 0, -1))
}

// BuildDaily groups checkins by employee and calendar day in loc.
func BuildDaily(checkins []models.Checkin, loc *time.Location) []*models.DailyAttendance {
	if loc == nil {
		loc = time.Local
	}

	type dayKey struct {
		employee string
		date     time.Time
	}

	grouped := make(map[dayKey][]models.Checkin)

	for _, c := range checkins {
		k := dayKey{employee: c.Employee, date: startOfDay(c.Time, loc)}
		grouped[k] = append(grouped[k], c)
	}

	records := make([]*models.DailyAttendance, 0, len(grouped))

	for k, punches := range grouped {
		records = append(records, buildDay(k.employee, k.date, punches))
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}

		return records[i].Employee < records[j].Employee
	})

	return records
}

func buildDay(employee string, date time.Time, punches []models.Checkin) *models.DailyAttendance {
	sort.Slice(punches, func(i, j int) bool { return punches[i].Time.Before(punches[j].Time) })

	day := &models.DailyAttendance{
		Employee:   employee,
		Date:       date,
		PunchCount: len(punches),
	}

	var open *time.Time

	for i := range punches {
		at := punches[i].Time

		switch punches[i].LogType {
		case models.LogTypeIn:
			if day.FirstIn == nil {
				day.FirstIn = &at
			}

			if open == nil {
				open = &at
			}
		case models.LogTypeOut:
			day.LastOut = &at

			if open != nil {
				day.Worked += at.Sub(*open)
				open = nil
			}
		}
	}

	day.Status = models.AttendanceIncomplete
	if day.FirstIn != nil && day.LastOut != nil && day.LastOut.After(*day.FirstIn) {
		day.Status = models.AttendancePresent
	}

	return day
}

// Summarize flags days with no IN, no OUT or an odd number of punches.
func Summarize(date time.Time, records []*models.DailyAttendance) *models.AnomalySummary {
	summary := &models.AnomalySummary{Date: date, Employees: len(records)}

	for _, r := range records {
		if r.FirstIn == nil {
			summary.MissingIn++
			summary.Anomalies = append(summary.Anomalies, models.Anomaly{Employee: r.Employee, Kind: models.AnomalyMissingIn})
		}

		if r.LastOut == nil {
			summary.MissingOut++
			summary.Anomalies = append(summary.Anomalies, models.Anomaly{Employee: r.Employee, Kind: models.AnomalyMissingOut})
		}

		if r.PunchCount%2 != 0 {
			summary.OddPunches++
			summary.Anomalies = append(summary.Anomalies, models.Anomaly{Employee: r.Employee, Kind: models.AnomalyOddPunches})
		}
	}

	return summary
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
