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

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

// ReadLogs fetches the attendance log from a connected channel. A failed
// request, a truncated reply or an empty log all yield an empty result; an
// empty log is the normal steady state of a device.
func ReadLogs(ctx context.Context, ch Channel, log logger.Logger) []models.PunchRecord {
	reply, err := ch.SendCommand(ctx, CmdAttLogRRQ, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read attendance logs")

		return nil
	}

	if _, err := DecodeHeader(reply); err != nil {
		log.Warn().Err(err).Int("reply_bytes", len(reply)).Msg("Attendance log reply too short")

		return nil
	}

	records := make([]models.PunchRecord, 0, (len(reply)-LogDataOffset)/PunchSlotSize)

	for offset := LogDataOffset; ; offset += PunchSlotSize {
		record, ok := DecodePunchSlot(reply, offset)
		if !ok {
			break
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		log.Debug().Msg("Device reported no attendance records")

		return nil
	}

	log.Debug().Int("records", len(records)).Msg("Read attendance logs")

	return records
}
