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

// Package zktest provides an in-process UDP attendance terminal for tests.
package zktest

import (
	"errors"
	"net"
	"sync"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/zk"
)

// Behavior tweaks how the fake device answers.
type Behavior struct {
	// SessionID is handed out on connect.
	SessionID uint16
	// IgnoreConnect drops connect requests so the client times out.
	IgnoreConnect bool
	// ShortConnectReply answers connect with fewer than 8 bytes.
	ShortConnectReply bool
	// IgnoreLogRequests drops attendance log requests.
	IgnoreLogRequests bool
	// ShortLogReply answers the log request with a truncated header.
	ShortLogReply bool
	// TrailingBytes appends a partial slot after the records.
	TrailingBytes int
}

// Device is a fake terminal bound to a loopback UDP port.
type Device struct {
	conn *net.UDPConn

	mu          sync.Mutex
	behavior    Behavior
	records     []models.PunchRecord
	requests    []zk.Header
	disconnects int

	done chan struct{}
}

// NewDevice starts a fake terminal serving records.
func NewDevice(behavior Behavior, records ...models.PunchRecord) (*Device, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}

	d := &Device{
		conn:     conn,
		behavior: behavior,
		records:  records,
		done:     make(chan struct{}),
	}

	go d.serve()

	return d, nil
}

// Addr returns the host and port the device listens on.
func (d *Device) Addr() (string, int) {
	addr := d.conn.LocalAddr().(*net.UDPAddr)

	return addr.IP.String(), addr.Port
}

// Endpoint describes the device as a fleet entry.
func (d *Device) Endpoint(name string) models.DeviceEndpoint {
	ip, port := d.Addr()

	return models.DeviceEndpoint{Name: name, IP: ip, Port: port, Enabled: true}
}

func (d *Device) SetRecords(records ...models.PunchRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = records
}

// Requests returns the headers of every request received so far.
func (d *Device) Requests() []zk.Header {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]zk.Header, len(d.requests))
	copy(out, d.requests)

	return out
}

func (d *Device) Disconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.disconnects
}

func (d *Device) Close() error {
	err := d.conn.Close()
	<-d.done

	return err
}

func (d *Device) serve() {
	defer close(d.done)

	buf := make([]byte, 65535)

	for {
		n, addr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			continue
		}

		header, err := zk.DecodeHeader(buf[:n])
		if err != nil {
			continue
		}

		if reply := d.handle(header); reply != nil {
			_, _ = d.conn.WriteToUDP(reply, addr)
		}
	}
}

func (d *Device) handle(h zk.Header) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, h)

	switch h.Command {
	case zk.CmdConnect:
		if d.behavior.IgnoreConnect {
			return nil
		}

		reply := zk.EncodeHeader(zk.CmdAckOK, d.behavior.SessionID, 0, 0)
		if d.behavior.ShortConnectReply {
			return reply[:6]
		}

		return reply[:zk.MinReplySize]
	case zk.CmdAttLogRRQ:
		if d.behavior.IgnoreLogRequests {
			return nil
		}

		prefix := zk.EncodeHeader(zk.CmdAckData, h.SessionID, h.ReplyID, 0)[:zk.LogDataOffset]
		if d.behavior.ShortLogReply {
			return prefix[:4]
		}

		reply := make([]byte, 0, len(prefix)+len(d.records)*zk.PunchSlotSize+d.behavior.TrailingBytes)
		reply = append(reply, prefix...)

		for _, r := range d.records {
			reply = append(reply, zk.EncodePunchSlot(r)...)
		}

		return append(reply, make([]byte, d.behavior.TrailingBytes)...)
	case zk.CmdDisconnect, zk.CmdExit:
		d.disconnects++

		return zk.EncodeHeader(zk.CmdAckOK, h.SessionID, h.ReplyID, 0)[:zk.MinReplySize]
	default:
		return zk.EncodeHeader(zk.CmdAckError, h.SessionID, h.ReplyID, 0)[:zk.MinReplySize]
	}
}
