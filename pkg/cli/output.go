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

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/carverauto/punchsync/pkg/models"
)

// Exit codes for punchctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and reported failure
	ExitCommandError = 2 // bad flags, unreadable config, unreachable server
)

// ExitError carries the process exit code for a command error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Plain errors map to
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}

// OutputFormatter writes command results as JSON or as aligned text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Render writes v in the configured format.
func (f *OutputFormatter) Render(v interface{}) error {
	if f.Format == FormatJSON {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	switch data := v.(type) {
	case *models.SyncResult:
		return writeSyncResult(f.Writer, data)
	case *models.FleetResult:
		return writeFleetResult(f.Writer, data)
	case models.ProbeResult:
		return writeProbeResult(f.Writer, data)
	case []*models.DeviceSyncState:
		return writeStates(f.Writer, data)
	default:
		_, err := fmt.Fprintln(f.Writer, v)

		return err
	}
}

// VerboseLog writes a diagnostic line when --verbose is set. It never
// touches Writer so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose || f.ErrWriter == nil {
		return
	}

	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

func status(ok bool) string {
	if ok {
		return "OK"
	}

	return "FAILED"
}

func writeSyncResult(w io.Writer, r *models.SyncResult) error {
	var b strings.Builder

	name := r.Device
	if name == "" {
		name = r.Address
	}

	fmt.Fprintf(&b, "%-6s %s\n", status(r.Success), name)
	fmt.Fprintf(&b, "  message: %s\n", r.Message)
	fmt.Fprintf(&b, "  synced:  %d\n", r.Synced)

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  error:   %s\n", e)
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func writeFleetResult(w io.Writer, r *models.FleetResult) error {
	fmt.Fprintf(w, "%-6s %s\n", status(r.Success), r.Message)
	fmt.Fprintf(w, "  devices synced: %d\n", r.DevicesSynced)
	fmt.Fprintf(w, "  total records:  %d\n", r.TotalRecords)

	if len(r.Results) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\nDEVICE\tSTATUS\tSYNCED\tMESSAGE")

		for _, res := range r.Results {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Device, status(res.Success), res.Synced, res.Message)
		}

		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}

	return nil
}

func writeProbeResult(w io.Writer, r models.ProbeResult) error {
	detail := r.Message
	if !r.Success {
		detail = r.Error
	}

	_, err := fmt.Fprintf(w, "%-6s %s\n", status(r.Success), detail)

	return err
}

func writeStates(w io.Writer, states []*models.DeviceSyncState) error {
	if len(states) == 0 {
		_, err := fmt.Fprintln(w, "No device state recorded")

		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tADDRESS\tLAST ATTEMPT\tLAST SUCCESS\tTOTAL\tFAILURES\tLAST ERROR")

	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Device, s.Address, formatTime(s.LastAttempt), formatTime(s.LastSuccess),
			s.TotalSynced, s.ConsecutiveFailures, s.LastError)
	}

	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.UTC().Format(time.RFC3339)
}
