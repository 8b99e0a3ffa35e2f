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

package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
)

const (
	StreamTypeCheckins   = "checkins"
	StreamTypeDeviceSync = "device_sync"
	StreamTypePing       = "ping"

	streamBuffer       = 32
	streamPingInterval = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 2 * streamPingInterval
)

// StreamMessage is one frame sent to stream subscribers.
type StreamMessage struct {
	Type      string      `json:"type"`
	Device    string      `json:"device,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans sync events out to connected WebSocket clients. Slow clients
// lose frames rather than block a sync.
type Hub struct {
	mu      sync.Mutex
	clients map[chan StreamMessage]struct{}
	logger  logger.Logger
	now     func() time.Time
}

var _ punch.EventPublisher = (*Hub)(nil)

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[chan StreamMessage]struct{}),
		logger:  log,
		now:     time.Now,
	}
}

// PublishCheckins broadcasts the checkins stored for device.
func (h *Hub) PublishCheckins(_ context.Context, device models.DeviceEndpoint, checkins []*models.Checkin) error {
	if len(checkins) == 0 {
		return nil
	}

	h.broadcast(StreamMessage{Type: StreamTypeCheckins, Device: device.DisplayName(), Data: checkins})

	return nil
}

func (h *Hub) PublishDeviceSync(_ context.Context, result *models.SyncResult) error {
	h.broadcast(StreamMessage{Type: StreamTypeDeviceSync, Device: result.Device, Data: result})

	return nil
}

func (h *Hub) broadcast(msg StreamMessage) {
	msg.Timestamp = h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn().Str("type", msg.Type).Msg("Stream subscriber is behind, dropping frame")
		}
	}
}

func (h *Hub) subscribe() chan StreamMessage {
	ch := make(chan StreamMessage, streamBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *Hub) unsubscribe(ch chan StreamMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Subscribers reports how many clients are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, "event stream not configured", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}

	defer func() { _ = conn.Close() }()

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Stream client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readClient(conn, cancel)

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	if err := s.pumpStream(ctx, conn, ch); err != nil {
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Stream client disconnected")
	}
}

func (s *Server) pumpStream(ctx context.Context, conn *websocket.Conn, ch <-chan StreamMessage) error {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		var msg StreamMessage

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msg = StreamMessage{Type: StreamTypePing, Timestamp: time.Now()}
		case msg = <-ch:
		}

		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}

		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to write %s message: %w", msg.Type, err)
		}
	}
}

// readClient drains client frames so close and disconnects are noticed.
func (s *Server) readClient(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Stream client closed unexpectedly")
			}

			return
		}
	}
}
