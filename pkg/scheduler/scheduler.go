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

// Package scheduler runs the periodic punchsync jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
)

var (
	errJobPanicked     = errors.New("job panicked")
	errInvalidInterval = errors.New("job interval must be positive")
	errDuplicateJob    = errors.New("duplicate job name")
)

// Job is one periodic task. Runs of the same job never overlap.
type Job struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// JobStatus is the last known outcome of a job.
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int           `json:"runs"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

type Scheduler struct {
	clock  Clock
	logger logger.Logger

	mu     sync.Mutex
	jobs   []Job
	status map[string]*JobStatus

	wg sync.WaitGroup
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func New(log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  realClock{},
		logger: log.WithComponent("scheduler"),
		status: make(map[string]*JobStatus),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a job. Jobs added after Start are not run.
func (s *Scheduler) Add(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("%w: %s", errInvalidInterval, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.status[job.Name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateJob, job.Name)
	}

	s.jobs = append(s.jobs, job)
	s.status[job.Name] = &JobStatus{Name: job.Name, Interval: job.Interval}

	return nil
}

// Start runs every job on its own ticker until ctx is done, then waits for
// in-flight runs to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	s.logger.Info().Int("jobs", len(jobs)).Msg("Starting scheduler")

	for _, job := range jobs {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			s.loop(ctx, job)
		}()
	}

	<-ctx.Done()
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped")

	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := s.clock.Ticker(job.Interval)
	defer ticker.Stop()

	s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("Job scheduled")

	if job.RunOnStart {
		_ = s.run(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_ = s.run(ctx, job)
		}
	}
}

// RunNow runs the named job once, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()

	var (
		job   Job
		found bool
	)

	for _, j := range s.jobs {
		if j.Name == name {
			job, found = j, true

			break
		}
	}

	s.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) (err error) {
	start := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errJobPanicked, r)
		}

		elapsed := s.clock.Now().Sub(start)
		s.record(job.Name, start, elapsed, err)

		if err != nil {
			s.logger.Error().Err(err).Str("job", job.Name).Dur("duration", elapsed).Msg("Job failed")

			return
		}

		s.logger.Debug().Str("job", job.Name).Dur("duration", elapsed).Msg("Job finished")
	}()

	return job.Run(ctx)
}

func (s *Scheduler) record(name string, at time.Time, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.status[name]
	if !ok {
		return
	}

	st.Runs++
	st.LastRun = at
	st.Duration = elapsed
	st.LastError = ""

	if err != nil {
		st.LastError = err.Error()
	}
}

// Status returns a snapshot of every job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
