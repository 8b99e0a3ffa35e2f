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

// Package events publishes punchsync activity as CloudEvents on NATS
// JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

const (
	eventSource     = "punchsync/sync"
	contentTypeJSON = "application/json"

	subjectCheckinCreated   = "checkin.created"
	subjectDeviceSynced     = "device.synced"
	subjectAnomalySnapshot  = "attendance.anomalies"
	subjectAttendanceWindow = "attendance.window"
)

// streamPublisher is the slice of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher emits CloudEvents to subjects under a common prefix.
type Publisher struct {
	js     streamPublisher
	prefix string
	log    logger.Logger
	now    func() time.Time
}

var _ punch.EventPublisher = (*Publisher)(nil)

// NewPublisher wraps a JetStream context. Subjects are prefix + "." + kind.
func NewPublisher(js streamPublisher, subjectPrefix string, log logger.Logger) *Publisher {
	return &Publisher{
		js:     js,
		prefix: subjectPrefix,
		log:    log.WithComponent("events"),
		now:    time.Now,
	}
}

// CheckinEventData is the payload of a checkin.created event.
type CheckinEventData struct {
	ID       string    `json:"id"`
	Employee string    `json:"employee"`
	Time     time.Time `json:"time"`
	LogType  string    `json:"log_type"`
	DeviceID string    `json:"device_id"`
	Device   string    `json:"device"`
}

// AttendanceWindowData is the payload of an attendance.window event.
type AttendanceWindowData struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Records int       `json:"records"`
}

// PublishCheckins emits one event per committed checkin. Every checkin is
// attempted; failures are joined.
func (p *Publisher) PublishCheckins(ctx context.Context, device models.DeviceEndpoint, checkins []*models.Checkin) error {
	var errs []error

	for _, c := range checkins {
		data := CheckinEventData{
			ID:       c.ID,
			Employee: c.Employee,
			Time:     c.Time,
			LogType:  c.LogType,
			DeviceID: c.DeviceID,
			Device:   device.DisplayName(),
		}

		if err := p.publish(ctx, models.EventTypeCheckinCreated, subjectCheckinCreated, data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) PublishDeviceSync(ctx context.Context, result *models.SyncResult) error {
	return p.publish(ctx, models.EventTypeDeviceSynced, subjectDeviceSynced, result)
}

func (p *Publisher) PublishAnomalySummary(ctx context.Context, summary *models.AnomalySummary) error {
	return p.publish(ctx, models.EventTypeAnomalySnapshot, subjectAnomalySnapshot, summary)
}

func (p *Publisher) PublishAttendanceWindow(ctx context.Context, from, to time.Time, records int) error {
	return p.publish(ctx, models.EventTypeAttendanceWindow, subjectAttendanceWindow,
		AttendanceWindowData{From: from, To: to, Records: records})
}

func (p *Publisher) subject(kind string) string {
	if p.prefix == "" {
		return kind
	}

	return p.prefix + "." + kind
}

func (p *Publisher) publish(ctx context.Context, eventType, kind string, data interface{}) error {
	now := p.now().UTC()

	event := models.CloudEvent{
		SpecVersion:     models.CloudEventSpecVersion,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: contentTypeJSON,
		Subject:         p.subject(kind),
		Time:            &now,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.log.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("published event")

	return nil
}
