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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/models"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func renderText(t *testing.T, v interface{}) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: FormatText, Writer: buf}
	require.NoError(t, f.Render(v))

	return buf.Bytes()
}

func fixtureFleetResult() *models.FleetResult {
	return &models.FleetResult{
		Success:       true,
		Message:       "Synced 1 of 2 devices",
		DevicesSynced: 1,
		TotalRecords:  3,
		Results: []*models.SyncResult{
			{Device: "front-gate", Success: true, Message: "Synced 3 records", Synced: 3},
			{Device: "warehouse", Success: false, Message: "Connection failed: i/o timeout"},
		},
		Errors: []string{"warehouse: Connection failed: i/o timeout"},
	}
}

func TestTextOutputGolden(t *testing.T) {
	at := time.Date(2025, 3, 4, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		name string
		data interface{}
	}{
		{
			name: "sync_result_ok",
			data: &models.SyncResult{Device: "front-gate", Success: true, Message: "Synced 3 records", Synced: 3},
		},
		{
			name: "sync_result_failed",
			data: &models.SyncResult{
				Address: "192.168.1.250:4370",
				Message: "Sync completed with 1 error(s)",
				Synced:  1,
				Errors:  []string{"record 2 (user 99): unresolved employee"},
			},
		},
		{name: "fleet_result", data: fixtureFleetResult()},
		{name: "probe_failed", data: models.ProbeResult{Error: "Connection timed out after 5s"}},
		{
			name: "states",
			data: []*models.DeviceSyncState{
				{Device: "front-gate", Address: "192.168.1.201:4370", LastAttempt: at, LastSuccess: at, TotalSynced: 42},
				{
					Device: "warehouse", Address: "192.168.1.202:4370", LastAttempt: at,
					ConsecutiveFailures: 3, LastError: "Connection failed: i/o timeout",
				},
			},
		},
		{name: "states_empty", data: []*models.DeviceSyncState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newGoldie(t).Assert(t, tt.name, renderText(t, tt.data))
		})
	}
}

func TestJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: FormatJSON, Writer: buf}

	require.NoError(t, f.Render(fixtureFleetResult()))

	var decoded models.FleetResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.TotalRecords)
	assert.Len(t, decoded.Results, 2)
}

func TestVerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: FormatJSON, Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("dialing %s", "10.0.0.5")

	assert.Empty(t, out.String())
	assert.Equal(t, "dialing 10.0.0.5\n", errOut.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad config", errors.New("eof"))))
	assert.Equal(t, "bad config: eof", WrapExitError(ExitCommandError, "bad config", errors.New("eof")).Error())
}
