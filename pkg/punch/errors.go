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

package punch

import "errors"

var (
	ErrUnresolvedEmployee = errors.New("employee not found")
	ErrRecordProcessing   = errors.New("record processing failed")
	ErrConfiguration      = errors.New("invalid punchsync configuration")
	ErrCircuitOpen        = errors.New("circuit breaker is open")

	errDeviceSyncFailed = errors.New("device sync failed")
)

// recordError reports the cause of a per-record failure and matches
// ErrRecordProcessing.
type recordError struct {
	cause error
}

func (e *recordError) Error() string { return e.cause.Error() }

func (e *recordError) Unwrap() []error { return []error{ErrRecordProcessing, e.cause} }
