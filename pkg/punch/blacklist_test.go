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

package punch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

func TestNetworkBlacklist(t *testing.T) {
	tests := []struct {
		name        string
		cidrs       []string
		ip          string
		blacklisted bool
		wantErr     bool
	}{
		{name: "inside range", cidrs: []string{"192.168.0.0/16"}, ip: "192.168.4.20", blacklisted: true},
		{name: "outside range", cidrs: []string{"192.168.0.0/16"}, ip: "10.0.0.1"},
		{name: "single host", cidrs: []string{"10.0.0.7/32"}, ip: "10.0.0.7", blacklisted: true},
		{name: "hostname never matches", cidrs: []string{"0.0.0.0/0"}, ip: "clock-a.local"},
		{name: "invalid cidr", cidrs: []string{"not-a-cidr"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb, err := NewNetworkBlacklist(tt.cidrs, logger.NewTestLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.blacklisted, nb.IsBlacklisted(tt.ip))
		})
	}
}

func TestNetworkBlacklist_FilterEndpoints(t *testing.T) {
	nb, err := NewNetworkBlacklist([]string{"10.0.0.0/8"}, logger.NewTestLogger())
	require.NoError(t, err)

	eps := []models.DeviceEndpoint{
		{Name: "a", IP: "10.1.1.1"},
		{Name: "b", IP: "172.16.0.9"},
		{Name: "c", IP: "gate.example.com"},
	}

	filtered := nb.FilterEndpoints(eps)

	require.Len(t, filtered, 2)
	assert.Equal(t, "b", filtered[0].Name)
	assert.Equal(t, "c", filtered[1].Name)

	var none *NetworkBlacklist
	assert.Equal(t, eps, none.FilterEndpoints(eps))
}
