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

// Package zk implements the client side of the UDP attendance-terminal
// protocol: header framing, the session handshake and attendance log reads.
package zk

import (
	"encoding/binary"
	"fmt"

	"github.com/carverauto/punchsync/pkg/models"
)

// Command codes.
const (
	CmdAttLogRRQ  uint16 = 13
	CmdConnect    uint16 = 1000
	CmdExit       uint16 = 1001
	CmdDisconnect uint16 = 1002

	CmdAckOK     uint16 = 2000
	CmdAckError  uint16 = 2001
	CmdAckData   uint16 = 2002
	CmdAckUnauth uint16 = 2005
)

const (
	// HeaderSize is the size of an encoded request header.
	HeaderSize = 10
	// MinReplySize is the shortest reply that carries session and reply ids.
	MinReplySize = 8
	// PunchSlotSize is the fixed size of one attendance record.
	PunchSlotSize = 40
	// LogDataOffset is where attendance slots start in a log reply.
	LogDataOffset = 8

	maxDatagramSize   = 65535
	connectReplyLimit = 1024
)

// Header is the fixed request/reply prefix. Checksum is reserved and always
// zero on the requests this client sends.
type Header struct {
	Command    uint16
	Checksum   uint16
	SessionID  uint16
	ReplyID    uint16
	PayloadLen uint16
}

// EncodeHeader packs a request header, little-endian.
func EncodeHeader(command, sessionID, replyID, payloadLen uint16) []byte {
	b := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint16(b[0:2], command)
	binary.LittleEndian.PutUint16(b[2:4], 0)
	binary.LittleEndian.PutUint16(b[4:6], sessionID)
	binary.LittleEndian.PutUint16(b[6:8], replyID)
	binary.LittleEndian.PutUint16(b[8:10], payloadLen)

	return b
}

// DecodeHeader reads a header from b. Replies only guarantee the first eight
// bytes, so PayloadLen is zero when b is shorter than HeaderSize.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < MinReplySize {
		return Header{}, fmt.Errorf("%w: %d byte header", ErrMalformedResponse, len(b))
	}

	h := Header{
		Command:   binary.LittleEndian.Uint16(b[0:2]),
		Checksum:  binary.LittleEndian.Uint16(b[2:4]),
		SessionID: binary.LittleEndian.Uint16(b[4:6]),
		ReplyID:   binary.LittleEndian.Uint16(b[6:8]),
	}

	if len(b) >= HeaderSize {
		h.PayloadLen = binary.LittleEndian.Uint16(b[8:10])
	}

	return h, nil
}

// DecodePunchSlot decodes the 40-byte slot at offset. It reports false when
// fewer than PunchSlotSize bytes remain, which means there are no more slots.
//
// Slot layout: user id u32, timestamp u32, verify type u8, in/out u8,
// 30 reserved bytes.
func DecodePunchSlot(b []byte, offset int) (models.PunchRecord, bool) {
	if offset < 0 || offset > len(b) || len(b)-offset < PunchSlotSize {
		return models.PunchRecord{}, false
	}

	slot := b[offset : offset+PunchSlotSize]

	return models.PunchRecord{
		UserID:     binary.LittleEndian.Uint32(slot[0:4]),
		Timestamp:  binary.LittleEndian.Uint32(slot[4:8]),
		VerifyType: slot[8],
		InOutType:  slot[9],
	}, true
}

// EncodePunchSlot is the inverse of DecodePunchSlot.
func EncodePunchSlot(r models.PunchRecord) []byte {
	slot := make([]byte, PunchSlotSize)

	binary.LittleEndian.PutUint32(slot[0:4], r.UserID)
	binary.LittleEndian.PutUint32(slot[4:8], r.Timestamp)
	slot[8] = r.VerifyType
	slot[9] = r.InOutType

	return slot
}

// CommandName returns a readable name for logging.
func CommandName(cmd uint16) string {
	switch cmd {
	case CmdAttLogRRQ:
		return "ATT_LOG_RRQ"
	case CmdConnect:
		return "CONNECT"
	case CmdExit:
		return "EXIT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdAckOK:
		return "ACK_OK"
	case CmdAckError:
		return "ACK_ERROR"
	case CmdAckData:
		return "ACK_DATA"
	case CmdAckUnauth:
		return "ACK_UNAUTH"
	default:
		return fmt.Sprintf("CMD_%d", cmd)
	}
}
