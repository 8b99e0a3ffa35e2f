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

package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateJSONFile(t *testing.T) {
	path := writeFile(t, "punchsync.json", `{
		"devices": [{"name": "front", "ip": "10.0.0.5", "enabled": true}],
		"sync_timeout": "3s",
		"batch_size": 50,
		"schedule": {"sync_interval": "1m"}
	}`)

	var cfg punch.Config
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, models.DefaultDevicePort, cfg.Devices[0].Port)
	assert.Equal(t, models.Duration(3*time.Second), cfg.SyncTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, models.Duration(time.Minute), cfg.Schedule.SyncInterval)
	assert.Equal(t, models.Duration(punch.DefaultProbeTimeout), cfg.ProbeTimeout)
}

func TestLoadAndValidateYAMLFile(t *testing.T) {
	path := writeFile(t, "punchsync.yaml", `
devices:
  - name: front
    ip: 10.0.0.5
    port: 4371
    enabled: true
timezone: UTC
sync_timeout: 2s
nats:
  url: nats://nats:4222
logging:
  level: debug
  otel:
    batch_timeout: 1s
`)

	var cfg punch.Config
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, 4371, cfg.Devices[0].Port)
	assert.Equal(t, models.Duration(2*time.Second), cfg.SyncTimeout)
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "punchsync.events", cfg.NATS.SubjectPrefix)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, logger.Duration(time.Second), cfg.Logging.OTel.BatchTimeout)
}

func TestLoadAndValidateSurfacesValidationErrors(t *testing.T) {
	path := writeFile(t, "bad.json", `{"devices": [{"name": "front"}]}`)

	var cfg punch.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, punch.ErrConfiguration)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var cfg punch.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "nope.json"), &cfg)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAndValidateRejectsUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg punch.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvSourceConfigJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("PUNCHSYNC_CONFIG_JSON", `{"devices":[{"name":"front","ip":"10.0.0.5","enabled":true}],"max_concurrency":4}`)

	var cfg punch.Config
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", &cfg))

	assert.Equal(t, "10.0.0.5", cfg.Devices[0].IP)
	assert.Equal(t, 4, cfg.MaxConcurrency)
}

func TestEnvSourceIndividualVariables(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("PUNCHSYNC_DEVICES", `[{"name":"front","ip":"10.0.0.5","enabled":true}]`)
	t.Setenv("PUNCHSYNC_BATCH_SIZE", "25")
	t.Setenv("PUNCHSYNC_SYNC_TIMEOUT", "4s")
	t.Setenv("PUNCHSYNC_NETWORK_BLACKLIST", "10.1.0.0/16, 10.2.0.0/16")
	t.Setenv("PUNCHSYNC_SCHEDULE_DISABLE_DAILY_JOBS", "true")
	t.Setenv("PUNCHSYNC_API_API_KEY", "secret")

	var cfg punch.Config
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Len(t, cfg.Devices, 1)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, models.Duration(4*time.Second), cfg.SyncTimeout)
	assert.Equal(t, []string{"10.1.0.0/16", "10.2.0.0/16"}, cfg.NetworkBlacklist)
	assert.True(t, cfg.Schedule.DisableDailyJobs)

	require.NotNil(t, cfg.API)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, ":8090", cfg.API.ListenAddr)

	assert.Nil(t, cfg.NATS, "untouched optional sections stay nil")
	assert.Nil(t, cfg.CircuitBreaker)
}

func TestEnvLoaderRejectsBadValues(t *testing.T) {
	t.Setenv("PUNCHSYNC_BATCH_SIZE", "lots")

	var cfg punch.Config
	err := NewEnvConfigLoader(logger.NewTestLogger(), EnvPrefix).Load(context.Background(), "", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUNCHSYNC_BATCH_SIZE")
}

func TestEnvLoaderRequiresStructPointer(t *testing.T) {
	loader := NewEnvConfigLoader(logger.NewTestLogger(), EnvPrefix)

	var cfg punch.Config
	require.ErrorIs(t, loader.Load(context.Background(), "", cfg), ErrDstMustBeNonNilPointer)

	n := 1
	require.ErrorIs(t, loader.Load(context.Background(), "", &n), ErrDstMustBePointerToStruct)
}

func TestRedact(t *testing.T) {
	cfg := &punch.Config{
		Devices:  []models.DeviceEndpoint{{Name: "front", IP: "10.0.0.5"}},
		Database: punch.DatabaseConfig{Driver: punch.DriverPostgres, URL: "postgres://u:p@db/punch"},
		API:      &punch.APIConfig{ListenAddr: ":8090", APIKey: "secret"},
	}

	raw, err := Redact(cfg)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	db := out["database"].(map[string]any)
	assert.Equal(t, redacted, db["url"])
	assert.Equal(t, punch.DriverPostgres, db["driver"])

	api := out["api"].(map[string]any)
	assert.Equal(t, redacted, api["api_key"])
	assert.Equal(t, ":8090", api["listen_addr"])

	devices := out["devices"].([]any)
	assert.Equal(t, "front", devices[0].(map[string]any)["name"])

	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, out, "nats")
}
