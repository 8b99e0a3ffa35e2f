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

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/punchsync/pkg/config"
	"github.com/carverauto/punchsync/pkg/lifecycle"
	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/probe"
	"github.com/carverauto/punchsync/pkg/punch"
)

const (
	defaultConfigPath = "/etc/punchsync/punchsync.yaml"
	apiKeyEnv         = "PUNCHSYNC_API_KEY"
)

var errRemoteUnsupported = errors.New("not available over the API; run without --server")

// Backend is where punchctl commands are carried out.
type Backend interface {
	SyncDevice(ctx context.Context, ip string, port int) (*models.SyncResult, error)
	SyncAll(ctx context.Context) (*models.FleetResult, error)
	TestConnection(ctx context.Context, ip string, port int, timeout time.Duration) (models.ProbeResult, error)
	DeviceStates(ctx context.Context) ([]*models.DeviceSyncState, error)
	RegisterDevice(ctx context.Context, ep models.DeviceEndpoint) error
	RegisterEmployee(ctx context.Context, employeeID, name, deviceUserID string) error
	Close()
}

// resolveBackend picks the injected backend, the remote API or the local
// service, in that order.
func (o *RootOptions) resolveBackend() Backend {
	if o.backend != nil {
		return o.backend
	}

	if o.Server != "" {
		key := o.APIKey
		if key == "" {
			key = os.Getenv(apiKeyEnv)
		}

		return NewHTTPBackend(o.Server, key)
	}

	return &localBackend{configPath: o.ConfigPath, log: o.log}
}

// localBackend builds the service from the config file on first use.
type localBackend struct {
	configPath string
	log        logger.Logger
	svc        *lifecycle.Service
}

func (b *localBackend) service(ctx context.Context) (*lifecycle.Service, error) {
	if b.svc != nil {
		return b.svc, nil
	}

	var cfg punch.Config
	if err := config.NewConfig(b.log).LoadAndValidate(ctx, b.configPath, &cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load config %s", b.configPath), err)
	}

	svc, err := lifecycle.Build(ctx, &cfg, b.log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize punchsync", err)
	}

	b.svc = svc

	return svc, nil
}

func (b *localBackend) SyncDevice(ctx context.Context, ip string, port int) (*models.SyncResult, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return nil, err
	}

	return svc.Fleet.SyncOneDevice(ctx, ip, port), nil
}

func (b *localBackend) SyncAll(ctx context.Context) (*models.FleetResult, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return nil, err
	}

	return svc.Fleet.SyncAllDevices(ctx), nil
}

// TestConnection needs no config; the probe only dials the device.
func (b *localBackend) TestConnection(ctx context.Context, ip string, port int, timeout time.Duration) (models.ProbeResult, error) {
	return probe.TestConnection(ctx, ip, port, timeout, b.log), nil
}

func (b *localBackend) DeviceStates(ctx context.Context) ([]*models.DeviceSyncState, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return nil, err
	}

	return svc.Fleet.States(ctx)
}

func (b *localBackend) RegisterDevice(ctx context.Context, ep models.DeviceEndpoint) error {
	svc, err := b.service(ctx)
	if err != nil {
		return err
	}

	return svc.Store.RegisterDevice(ctx, ep)
}

func (b *localBackend) RegisterEmployee(ctx context.Context, employeeID, name, deviceUserID string) error {
	svc, err := b.service(ctx)
	if err != nil {
		return err
	}

	return svc.Store.RegisterEmployee(ctx, employeeID, name, deviceUserID)
}

func (b *localBackend) Close() {
	if b.svc != nil {
		b.svc.Close()
		b.svc = nil
	}
}
