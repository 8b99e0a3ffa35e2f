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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carverauto/punchsync/pkg/config"
	"github.com/carverauto/punchsync/pkg/lifecycle"
	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/punch"
	"github.com/carverauto/punchsync/pkg/version"
)

var (
	errFailedToLoadConfig = errors.New("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/punchsync/punchsync.yaml", "Path to punchsync config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg punch.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	svcLogger, err := lifecycle.CreateComponentLogger(ctx, "punchsync", logConfig)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to flush telemetry: %v", err)
		}
	}()

	ctx, rootSpan, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    logConfig.OTel.ServiceName,
		ServiceVersion: version.GetVersion(),
		Logger:         svcLogger,
		OTel:           &logConfig.OTel,
	})
	if err != nil {
		return err
	}
	defer rootSpan.End()

	if _, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    logConfig.OTel.ServiceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &logConfig.OTel,
	}); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return err
	}

	if redacted, err := config.Redact(&cfg); err == nil {
		svcLogger.Debug().RawJSON("config", redacted).Msg("Effective configuration")
	}

	svc, err := lifecycle.Build(ctx, &cfg, svcLogger)
	if err != nil {
		return err
	}
	defer svc.Close()

	svcLogger.Info().Str("version", version.GetFullVersion()).Msg("punchsync started")

	if err := svc.Run(ctx); err != nil {
		return err
	}

	svcLogger.Info().Msg("punchsync stopped")

	return nil
}
