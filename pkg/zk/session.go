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

package zk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
)

// DefaultTimeout bounds every socket operation of a sync session.
const DefaultTimeout = 10 * time.Second

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	// StateFailed is terminal. A session that failed to connect must be
	// discarded, never reconnected in place.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Channel is a request/reply conversation with one device.
type Channel interface {
	Connect(ctx context.Context) bool
	SendCommand(ctx context.Context, command uint16, payload []byte) ([]byte, error)
	Disconnect()
	State() State
}

// Session is a Channel over UDP. The device protocol is strictly half-duplex
// so a Session carries at most one exchange at a time.
type Session struct {
	address string
	timeout time.Duration
	logger  logger.Logger

	mu        sync.Mutex
	conn      net.Conn
	state     State
	sessionID uint16
	replyID   uint16
}

var _ Channel = (*Session)(nil)

// NewSession creates an idle session for ip:port. A non-positive timeout
// selects DefaultTimeout.
func NewSession(ip string, port int, timeout time.Duration, log logger.Logger) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Session{
		address: net.JoinHostPort(ip, strconv.Itoa(port)),
		timeout: timeout,
		logger:  log,
		state:   StateIdle,
	}
}

func (s *Session) Address() string { return s.address }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// IDs returns the negotiated session id and the current reply id.
func (s *Session) IDs() (sessionID, replyID uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionID, s.replyID
}

// Connect performs the handshake. Every failure is logged and reported as
// false; the session is then in StateFailed.
func (s *Session) Connect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.logger.Warn().
			Str("device", s.address).
			Str("state", s.state.String()).
			Msg("Connect called on a session that is not idle")

		return false
	}

	s.state = StateConnecting

	if err := s.handshake(ctx); err != nil {
		s.fail(err)

		return false
	}

	s.state = StateConnected

	s.logger.Debug().
		Str("device", s.address).
		Uint16("session_id", s.sessionID).
		Uint16("reply_id", s.replyID).
		Msg("Connected to device")

	return true
}

func (s *Session) handshake(ctx context.Context) error {
	var dialer net.Dialer

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "udp", s.address)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectFailure, s.address, err)
	}

	s.conn = conn

	reply, err := s.exchange(ctx, EncodeHeader(CmdConnect, 0, 0, 0), connectReplyLimit)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}

	header, err := DecodeHeader(reply)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}

	s.sessionID = header.SessionID
	s.replyID = header.ReplyID

	return nil
}

func (s *Session) fail(err error) {
	s.state = StateFailed

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	s.logger.Error().
		Err(err).
		Str("device", s.address).
		Msg("Device connection failed")
}

// SendCommand sends one request and waits for exactly one reply datagram.
// The reply id advances with every exchange and wraps at 0xFFFF.
func (s *Session) SendCommand(ctx context.Context, command uint16, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotConnected, s.address, s.state)
	}

	s.replyID++

	packet := append(EncodeHeader(command, s.sessionID, s.replyID, uint16(len(payload))), payload...)

	reply, err := s.exchange(ctx, packet, maxDatagramSize)
	if err != nil {
		return nil, fmt.Errorf("%s to %s: %w", CommandName(command), s.address, err)
	}

	return reply, nil
}

// exchange writes one datagram and reads one reply of at most limit bytes.
// Callers hold s.mu.
func (s *Session) exchange(ctx context.Context, packet []byte, limit int) ([]byte, error) {
	if err := s.conn.SetDeadline(s.deadline(ctx)); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := s.conn.Write(packet); err != nil {
		return nil, s.classify(ctx, err)
	}

	buf := make([]byte, limit)

	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, s.classify(ctx, err)
	}

	return buf[:n], nil
}

func (s *Session) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(s.timeout)

	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}

	return deadline
}

func (s *Session) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
	}

	return err
}

// Disconnect releases the session. A connected session first tells the
// device it is leaving. Errors are logged, never returned, and calling
// Disconnect more than once is safe.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnected && s.conn != nil {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))

		if _, err := s.conn.Write(EncodeHeader(CmdDisconnect, s.sessionID, s.replyID, 0)); err != nil {
			s.logger.Debug().Err(err).Str("device", s.address).Msg("Disconnect command not delivered")
		}
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Str("device", s.address).Msg("Failed to close device socket")
		}

		s.conn = nil
	}

	if s.state != StateDisconnected {
		s.logger.Debug().Str("device", s.address).Msg("Disconnected from device")
	}

	s.state = StateDisconnected
}

// Close is Disconnect for use with defer and io.Closer consumers.
func (s *Session) Close() error {
	s.Disconnect()

	return nil
}
