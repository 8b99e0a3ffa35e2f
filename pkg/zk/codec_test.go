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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/punchsync/pkg/models"
)

func TestHeaderRoundTrip(t *testing.T) {
	values := []uint16{0, 1, 13, 1000, 1002, 0x7FFF, 0x8000, 0xFFFE, 0xFFFF}

	for _, command := range values {
		for _, session := range values {
			for _, reply := range values {
				for _, payload := range []uint16{0, 40, 0xFFFF} {
					encoded := EncodeHeader(command, session, reply, payload)
					require.Len(t, encoded, HeaderSize)

					decoded, err := DecodeHeader(encoded)
					require.NoError(t, err)

					assert.Equal(t, Header{
						Command:    command,
						SessionID:  session,
						ReplyID:    reply,
						PayloadLen: payload,
					}, decoded)
				}
			}
		}
	}
}

func TestEncodeHeader_LittleEndian(t *testing.T) {
	assert.Equal(t,
		[]byte{0xE8, 0x03, 0x00, 0x00, 0x34, 0x12, 0x02, 0x00, 0x28, 0x00},
		EncodeHeader(CmdConnect, 0x1234, 2, 40))
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    Header
		wantErr bool
	}{
		{name: "empty", input: nil, wantErr: true},
		{name: "seven bytes", input: []byte{0xD0, 0x07, 0, 0, 1, 0, 2}, wantErr: true},
		{
			name:  "eight bytes has no payload length",
			input: []byte{0xD0, 0x07, 0, 0, 0x39, 0x30, 5, 0},
			want:  Header{Command: CmdAckOK, SessionID: 12345, ReplyID: 5},
		},
		{
			name:  "nine bytes still has no payload length",
			input: []byte{0xD0, 0x07, 0, 0, 1, 0, 2, 0, 9},
			want:  Header{Command: CmdAckOK, SessionID: 1, ReplyID: 2},
		},
		{
			name:  "full header",
			input: EncodeHeader(CmdAckData, 7, 8, 400),
			want:  Header{Command: CmdAckData, SessionID: 7, ReplyID: 8, PayloadLen: 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHeader(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedResponse)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePunchSlot(t *testing.T) {
	record := models.PunchRecord{UserID: 7, Timestamp: 1700000000, VerifyType: 1, InOutType: 1}

	buf := append(make([]byte, LogDataOffset), EncodePunchSlot(record)...)

	got, ok := DecodePunchSlot(buf, LogDataOffset)
	require.True(t, ok)
	assert.Equal(t, record, got)
}

func TestDecodePunchSlot_ShortBuffer(t *testing.T) {
	full := EncodePunchSlot(models.PunchRecord{UserID: 1})

	tests := []struct {
		name   string
		buf    []byte
		offset int
	}{
		{name: "nil buffer", buf: nil, offset: 0},
		{name: "one byte short", buf: full[:PunchSlotSize-1], offset: 0},
		{name: "offset past end", buf: full, offset: PunchSlotSize + 5},
		{name: "offset leaves 39 bytes", buf: full, offset: 1},
		{name: "negative offset", buf: full, offset: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := DecodePunchSlot(tt.buf, tt.offset)
				assert.False(t, ok)
			})
		})
	}
}

func TestLogType(t *testing.T) {
	assert.Equal(t, models.LogTypeIn, models.PunchRecord{InOutType: 0}.LogType())
	assert.Equal(t, models.LogTypeOut, models.PunchRecord{InOutType: 1}.LogType())
	assert.Equal(t, models.LogTypeOut, models.PunchRecord{InOutType: 5}.LogType())
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "ATT_LOG_RRQ", CommandName(CmdAttLogRRQ))
	assert.Equal(t, "CMD_42", CommandName(42))
}
