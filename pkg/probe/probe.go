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

// Package probe checks whether a device answers on its TCP port. It is an
// operator diagnostic and never touches sync sessions.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

const DefaultTimeout = 5 * time.Second

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Prober struct {
	timeout time.Duration
	dialer  Dialer
	logger  logger.Logger
}

type Option func(*Prober)

func WithDialer(d Dialer) Option {
	return func(p *Prober) { p.dialer = d }
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func NewProber(log logger.Logger, opts ...Option) *Prober {
	p := &Prober{
		timeout: DefaultTimeout,
		dialer:  &net.Dialer{},
		logger:  log,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// TestConnection is a one-shot probe with its own Prober.
func TestConnection(ctx context.Context, ip string, port int, timeout time.Duration, log logger.Logger) models.ProbeResult {
	return NewProber(log, WithTimeout(timeout)).TestConnection(ctx, ip, port)
}

// TestConnection dials ip:port over TCP and describes the outcome.
func (p *Prober) TestConnection(ctx context.Context, ip string, port int) models.ProbeResult {
	if port == 0 {
		port = models.DefaultDevicePort
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	display := fmt.Sprintf("%s:%d", ip, port)

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	conn, err := p.dialer.DialContext(probeCtx, "tcp", addr)
	if err != nil {
		result := describeFailure(probeCtx, err)

		p.logger.Warn().
			Err(err).
			Str("device", display).
			Dur("elapsed", time.Since(start)).
			Msg("Device connectivity check failed")

		return result
	}

	if err := conn.Close(); err != nil {
		p.logger.Debug().Err(err).Str("device", display).Msg("Failed to close probe connection")
	}

	p.logger.Info().
		Str("device", display).
		Dur("elapsed", time.Since(start)).
		Msg("Device connectivity check succeeded")

	return models.ProbeResult{
		Success: true,
		Message: "Successfully connected to device at " + display,
	}
}

func describeFailure(ctx context.Context, err error) models.ProbeResult {
	var (
		netErr net.Error
		errno  syscall.Errno
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return models.ProbeResult{Error: "Connection timeout. Device may be offline or unreachable."}
	case errors.As(err, &errno) && errno != 0:
		return models.ProbeResult{Error: fmt.Sprintf(
			"Unable to connect to device. Error code: %d. Please check network and device status.", int(errno))}
	default:
		return models.ProbeResult{Error: "Connection error: " + err.Error()}
	}
}
