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

package events

import (
	"context"
	"errors"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

// Fanout delivers every event to each publisher in order. All publishers
// are tried; their errors are joined.
type Fanout []punch.EventPublisher

var _ punch.EventPublisher = Fanout(nil)

// NewFanout drops nil publishers. A single publisher is returned unwrapped.
func NewFanout(publishers ...punch.EventPublisher) punch.EventPublisher {
	out := make(Fanout, 0, len(publishers))

	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}

	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f Fanout) PublishCheckins(ctx context.Context, device models.DeviceEndpoint, checkins []*models.Checkin) error {
	var errs []error

	for _, p := range f {
		if err := p.PublishCheckins(ctx, device, checkins); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f Fanout) PublishDeviceSync(ctx context.Context, result *models.SyncResult) error {
	var errs []error

	for _, p := range f {
		if err := p.PublishDeviceSync(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
