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

// Package lifecycle assembles the punchsync service from its configuration
// and runs it until shutdown.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/punchsync/pkg/api"
	"github.com/carverauto/punchsync/pkg/attendance"
	"github.com/carverauto/punchsync/pkg/events"
	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/probe"
	"github.com/carverauto/punchsync/pkg/punch"
	"github.com/carverauto/punchsync/pkg/scheduler"
	"github.com/carverauto/punchsync/pkg/store/boltdb"
)

// Service holds the wired components. Optional parts are nil when not
// configured.
type Service struct {
	Config    *punch.Config
	Store     Store
	Fleet     *punch.Fleet
	Prober    *probe.Prober
	Processor *attendance.Processor
	Scheduler *scheduler.Scheduler
	Metrics   *punch.InMemoryMetrics
	API       *api.Server

	log     logger.Logger
	closers []func()
}

// Build wires every component for an already validated cfg. Close releases
// what Build opened, also when Build fails part way.
func Build(ctx context.Context, cfg *punch.Config, log logger.Logger) (svc *Service, err error) {
	svc = &Service{Config: cfg, log: log}

	defer func() {
		if err != nil {
			svc.Close()
			svc = nil
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return svc, err
	}

	store, closeStore, err := OpenStore(ctx, &cfg.Database, log)
	if err != nil {
		return svc, err
	}

	svc.Store = store
	svc.closers = append(svc.closers, closeStore)

	var source punch.DeviceSource = punch.NewStaticSource(cfg.Devices)
	if cfg.DeviceSource == punch.SourceDatabase {
		source = store
	}

	svc.Metrics = punch.NewInMemoryMetrics(log)

	syncerOpts := []punch.SyncerOption{punch.WithMetrics(svc.Metrics)}
	processorOpts := []attendance.Option{attendance.WithLocation(loc)}

	var publishers []punch.EventPublisher

	var hub *api.Hub
	if cfg.API != nil {
		hub = api.NewHub(log.WithComponent("stream"))
		publishers = append(publishers, hub)
	}

	if cfg.NATS != nil {
		publisher, nc, err := events.Connect(ctx, cfg.NATS, log)
		if err != nil {
			return svc, err
		}

		svc.closers = append(svc.closers, func() {
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("Failed to drain NATS connection")
			}
		})

		publishers = append(publishers, publisher)
		processorOpts = append(processorOpts, attendance.WithNotifier(publisher))
	}

	if fan := events.NewFanout(publishers...); fan != nil {
		syncerOpts = append(syncerOpts, punch.WithPublisher(fan))
	}

	syncer, err := punch.NewSyncerFromConfig(cfg, store, store, log, syncerOpts...)
	if err != nil {
		return svc, err
	}

	fleetOpts, err := svc.fleetOptions(cfg)
	if err != nil {
		return svc, err
	}

	svc.Fleet = punch.NewFleet(source, syncer, log, fleetOpts...)
	svc.Prober = probe.NewProber(log, probe.WithTimeout(time.Duration(cfg.ProbeTimeout)))
	svc.Processor = attendance.NewProcessor(store, log, processorOpts...)

	svc.Scheduler, err = scheduler.FromConfig(cfg, svc.Fleet, svc.Processor, log)
	if err != nil {
		return svc, err
	}

	if cfg.API != nil {
		svc.API = api.NewServer(
			api.WithFleet(svc.Fleet),
			api.WithProber(svc.Prober),
			api.WithJobs(svc.Scheduler),
			api.WithMetrics(svc.Metrics),
			api.WithHub(hub),
			api.WithAPIKey(cfg.API.APIKey),
			api.WithLogger(log.WithComponent("api")),
		)
	}

	log.Info().
		Str("device_source", cfg.DeviceSource).
		Str("database", cfg.Database.Driver).
		Int("max_concurrency", cfg.MaxConcurrency).
		Bool("events", cfg.NATS != nil).
		Bool("api", cfg.API != nil).
		Msg("punchsync service built")

	return svc, nil
}

func (s *Service) fleetOptions(cfg *punch.Config) ([]punch.FleetOption, error) {
	blacklist, err := punch.NewNetworkBlacklist(cfg.NetworkBlacklist, s.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", punch.ErrConfiguration, err)
	}

	opts := []punch.FleetOption{
		punch.WithBlacklist(blacklist),
		punch.WithFleetMetrics(s.Metrics),
		punch.WithMaxConcurrency(cfg.MaxConcurrency),
	}

	if breaker, ok := cfg.BreakerSettings(); ok {
		opts = append(opts, punch.WithCircuitBreaker(breaker))
	}

	if cfg.StatePath != "" {
		states, err := boltdb.Open(cfg.StatePath)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, func() {
			if err := states.Close(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to close state store")
			}
		})

		opts = append(opts, punch.WithStateStore(states))
	}

	return opts, nil
}

// Run starts the scheduler and, when configured, the API server. It blocks
// until ctx is done or a component fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Scheduler.Start(ctx)
	})

	if s.API != nil {
		g.Go(func() error {
			return s.API.Start(s.Config.API.ListenAddr)
		})

		g.Go(func() error {
			<-ctx.Done()

			return s.API.Shutdown(context.WithoutCancel(ctx))
		})
	}

	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}

	s.closers = nil
}
