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
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/api"
	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

type fakeBackend struct {
	syncResult  *models.SyncResult
	fleetResult *models.FleetResult
	probe       models.ProbeResult
	states      []*models.DeviceSyncState

	gotIP      string
	gotPort    int
	gotTimeout time.Duration
	devices    []models.DeviceEndpoint
	employees  [][3]string
	closed     int
}

func (f *fakeBackend) SyncDevice(_ context.Context, ip string, port int) (*models.SyncResult, error) {
	f.gotIP, f.gotPort = ip, port

	return f.syncResult, nil
}

func (f *fakeBackend) SyncAll(context.Context) (*models.FleetResult, error) {
	return f.fleetResult, nil
}

func (f *fakeBackend) TestConnection(_ context.Context, ip string, port int, timeout time.Duration) (models.ProbeResult, error) {
	f.gotIP, f.gotPort, f.gotTimeout = ip, port, timeout

	return f.probe, nil
}

func (f *fakeBackend) DeviceStates(context.Context) ([]*models.DeviceSyncState, error) {
	return f.states, nil
}

func (f *fakeBackend) RegisterDevice(_ context.Context, ep models.DeviceEndpoint) error {
	f.devices = append(f.devices, ep)

	return nil
}

func (f *fakeBackend) RegisterEmployee(_ context.Context, id, name, deviceUserID string) error {
	f.employees = append(f.employees, [3]string{id, name, deviceUserID})

	return nil
}

func (f *fakeBackend) Close() { f.closed++ }

func execute(t *testing.T, backend Backend, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand(WithBackend(backend), WithLogger(logger.NewTestLogger()))

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"sync-device", "sync-all", "test-connection", "state", "device", "employee", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, FormatText, format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
	assert.Equal(t, defaultConfigPath, cfg.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, &fakeBackend{}, "sync-all", "--format", "yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSyncDevice(t *testing.T) {
	backend := &fakeBackend{syncResult: &models.SyncResult{Device: "10.0.0.5:4370", Success: true, Message: "Synced 2 records", Synced: 2}}

	out, err := execute(t, backend, "sync-device", "--ip", "10.0.0.5", "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", backend.gotIP)
	assert.Equal(t, models.DefaultDevicePort, backend.gotPort)
	assert.Equal(t, 1, backend.closed)

	var result models.SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Synced)
}

func TestSyncDeviceFailureExitCode(t *testing.T) {
	backend := &fakeBackend{syncResult: &models.SyncResult{Message: "Connection failed: refused"}}

	out, err := execute(t, backend, "sync-device", "--ip", "10.0.0.5")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAILED")
}

func TestSyncDeviceValidatesFlags(t *testing.T) {
	tests := [][]string{
		{"sync-device"},
		{"sync-device", "--ip", "nope"},
		{"sync-device", "--ip", "10.0.0.5", "--port", "0"},
	}

	for _, args := range tests {
		_, err := execute(t, &fakeBackend{}, args...)
		require.Error(t, err, args)
	}
}

func TestSyncAll(t *testing.T) {
	backend := &fakeBackend{fleetResult: fixtureFleetResult()}

	out, err := execute(t, backend, "sync-all")
	require.NoError(t, err)

	assert.Equal(t, string(renderText(t, fixtureFleetResult())), out)
}

func TestTestConnection(t *testing.T) {
	backend := &fakeBackend{probe: models.ProbeResult{Error: "Connection refused"}}

	out, err := execute(t, backend, "test-connection", "--ip", "10.0.0.9", "--port", "4371", "--probe-timeout", "2s")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "FAILED Connection refused\n", out)
	assert.Equal(t, 4371, backend.gotPort)
	assert.Equal(t, 2*time.Second, backend.gotTimeout)
}

func TestDeviceAndEmployeeAdd(t *testing.T) {
	backend := &fakeBackend{}

	out, err := execute(t, backend, "device", "add", "--ip", "10.0.0.5", "--name", "front-gate")
	require.NoError(t, err)
	assert.Equal(t, "Registered device front-gate at 10.0.0.5:4370\n", out)

	require.Len(t, backend.devices, 1)
	assert.True(t, backend.devices[0].Enabled)

	_, err = execute(t, backend, "device", "add", "--ip", "10.0.0.6", "--disabled")
	require.NoError(t, err)
	require.Len(t, backend.devices, 2)
	assert.Equal(t, "10.0.0.6:4370", backend.devices[1].Name)
	assert.False(t, backend.devices[1].Enabled)

	_, err = execute(t, backend, "employee", "add", "--id", "EMP-001", "--name", "Ada", "--device-user-id", "1")
	require.NoError(t, err)
	assert.Equal(t, [][3]string{{"EMP-001", "Ada", "1"}}, backend.employees)
}

func TestState(t *testing.T) {
	out, err := execute(t, &fakeBackend{}, "state")

	require.NoError(t, err)
	assert.Equal(t, "No device state recorded\n", out)
}

type apiFleet struct{}

func (apiFleet) SyncAllDevices(context.Context) *models.FleetResult {
	return &models.FleetResult{Success: true, Message: "No enabled devices found"}
}

func (apiFleet) SyncOneDevice(_ context.Context, ip string, _ int) *models.SyncResult {
	return &models.SyncResult{Device: ip, Success: true, Message: "Synced 0 records"}
}

func (apiFleet) States(context.Context) ([]*models.DeviceSyncState, error) {
	return nil, nil
}

func TestHTTPBackendAgainstAPI(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(
		api.WithFleet(apiFleet{}),
		api.WithAPIKey("secret"),
		api.WithLogger(logger.NewTestLogger()),
	))
	t.Cleanup(srv.Close)

	ctx := context.Background()

	client := NewHTTPBackend(srv.URL+"/", "secret")
	defer client.Close()

	fleet, err := client.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No enabled devices found", fleet.Message)

	result, err := client.SyncDevice(ctx, "10.0.0.5", 4370)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", result.Device)

	states, err := client.DeviceStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)

	err = client.RegisterDevice(ctx, models.DeviceEndpoint{IP: "10.0.0.5"})
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	unauthorized := NewHTTPBackend(srv.URL, "wrong")
	_, err = unauthorized.SyncAll(ctx)
	require.ErrorIs(t, err, errUnexpectedStatus)
	assert.Contains(t, err.Error(), "Unauthorized")

	_, err = client.TestConnection(ctx, "10.0.0.5", 4370, time.Second)
	require.ErrorIs(t, err, errUnexpectedStatus)
	assert.Contains(t, err.Error(), "503")
}
