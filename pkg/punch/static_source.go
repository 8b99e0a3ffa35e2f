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
	"context"

	"github.com/carverauto/punchsync/pkg/models"
)

// StaticSource serves the device list from configuration.
type StaticSource struct {
	devices []models.DeviceEndpoint
}

var _ DeviceSource = (*StaticSource)(nil)

func NewStaticSource(devices []models.DeviceEndpoint) *StaticSource {
	return &StaticSource{devices: devices}
}

func (s *StaticSource) EnabledDevices(_ context.Context) ([]models.DeviceEndpoint, error) {
	enabled := make([]models.DeviceEndpoint, 0, len(s.devices))

	for _, d := range s.devices {
		if !d.Enabled {
			continue
		}

		if d.Port == 0 {
			d.Port = models.DefaultDevicePort
		}

		enabled = append(enabled, d)
	}

	return enabled, nil
}
