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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

func TestNewFanoutCollapses(t *testing.T) {
	assert.Nil(t, NewFanout())
	assert.Nil(t, NewFanout(nil, nil))

	p := newTestPublisher(&fakeJetStream{})
	assert.Same(t, p, NewFanout(nil, p))
}

func TestFanoutDeliversToAll(t *testing.T) {
	ctrl := gomock.NewController(t)

	first := punch.NewMockEventPublisher(ctrl)
	second := punch.NewMockEventPublisher(ctrl)

	result := &models.SyncResult{Device: "front", Success: true}
	device := models.DeviceEndpoint{Name: "front", IP: "10.0.0.5"}
	checkins := []*models.Checkin{{ID: "c1", Employee: "EMP-001"}}

	first.EXPECT().PublishDeviceSync(gomock.Any(), result).Return(errPublishFailed)
	second.EXPECT().PublishDeviceSync(gomock.Any(), result).Return(nil)
	first.EXPECT().PublishCheckins(gomock.Any(), device, checkins).Return(nil)
	second.EXPECT().PublishCheckins(gomock.Any(), device, checkins).Return(nil)

	fan := NewFanout(first, second)

	err := fan.PublishDeviceSync(context.Background(), result)
	require.ErrorIs(t, err, errPublishFailed)

	require.NoError(t, fan.PublishCheckins(context.Background(), device, checkins))
}
