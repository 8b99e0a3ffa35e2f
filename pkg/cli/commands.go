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
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/probe"
	"github.com/carverauto/punchsync/pkg/version"
)

// DeviceOptions holds the address flags shared by device commands.
type DeviceOptions struct {
	*RootOptions
	IP   string
	Port int
}

func (o *DeviceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.IP, "ip", "", "device IP address")
	cmd.Flags().IntVar(&o.Port, "port", models.DefaultDevicePort, "device port")
	_ = cmd.MarkFlagRequired("ip")
}

func (o *DeviceOptions) validate() error {
	if net.ParseIP(o.IP) == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --ip %q", o.IP))
	}

	if o.Port <= 0 || o.Port > 65535 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --port %d", o.Port))
	}

	return nil
}

// NewSyncDeviceCommand creates the sync-device command.
func NewSyncDeviceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeviceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync-device",
		Short: "Sync the attendance log of one device",
		Example: `  punchctl sync-device --ip 192.168.1.201
  punchctl sync-device --ip 192.168.1.201 --port 4370 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			result, err := backend.SyncDevice(ctx, opts.IP, opts.Port)
			if err != nil {
				return err
			}

			if err := opts.formatter(cmd).Render(result); err != nil {
				return err
			}

			if !result.Success {
				return NewExitError(ExitFailure, result.Message)
			}

			return nil
		},
	}

	opts.bind(cmd)

	return cmd
}

// NewSyncAllCommand creates the sync-all command.
func NewSyncAllCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-all",
		Short: "Sync every enabled device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			result, err := backend.SyncAll(ctx)
			if err != nil {
				return err
			}

			if err := opts.formatter(cmd).Render(result); err != nil {
				return err
			}

			if !result.Success {
				return NewExitError(ExitFailure, result.Message)
			}

			return nil
		},
	}
}

// NewTestConnectionCommand creates the test-connection command.
func NewTestConnectionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeviceOptions{RootOptions: rootOpts}

	var timeout time.Duration

	cmd := &cobra.Command{
		Use:     "test-connection",
		Short:   "Check that a device accepts TCP connections",
		Example: "  punchctl test-connection --ip 192.168.1.201",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			result, err := backend.TestConnection(ctx, opts.IP, opts.Port, timeout)
			if err != nil {
				return err
			}

			if err := opts.formatter(cmd).Render(result); err != nil {
				return err
			}

			if !result.Success {
				return NewExitError(ExitFailure, result.Error)
			}

			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().DurationVar(&timeout, "probe-timeout", probe.DefaultTimeout, "connect timeout")

	return cmd
}

// NewStateCommand creates the state command.
func NewStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the recorded sync history of each device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			states, err := backend.DeviceStates(ctx)
			if err != nil {
				return err
			}

			return opts.formatter(cmd).Render(states)
		},
	}
}

// NewDeviceCommand groups device registry commands.
func NewDeviceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage the biometric_devices registry",
	}

	opts := &DeviceOptions{RootOptions: rootOpts}

	var (
		name     string
		disabled bool
	)

	add := &cobra.Command{
		Use:   "add",
		Short: "Register or update a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			if name == "" {
				name = net.JoinHostPort(opts.IP, fmt.Sprint(opts.Port))
			}

			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			ep := models.DeviceEndpoint{Name: name, IP: opts.IP, Port: opts.Port, Enabled: !disabled}
			if err := backend.RegisterDevice(ctx, ep); err != nil {
				return err
			}

			return opts.formatter(cmd).Render(fmt.Sprintf("Registered device %s at %s", ep.Name, ep.Address()))
		},
	}

	opts.bind(add)
	add.Flags().StringVar(&name, "name", "", "device name (defaults to ip:port)")
	add.Flags().BoolVar(&disabled, "disabled", false, "register the device as disabled")

	cmd.AddCommand(add)

	return cmd
}

// NewEmployeeCommand groups employee mapping commands.
func NewEmployeeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage device user to employee mappings",
	}

	var id, name, deviceUserID string

	add := &cobra.Command{
		Use:   "add",
		Short: "Map a device user id to an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			backend := opts.resolveBackend()
			defer backend.Close()

			if err := backend.RegisterEmployee(ctx, id, name, deviceUserID); err != nil {
				return err
			}

			return opts.formatter(cmd).Render(fmt.Sprintf("Mapped device user %s to %s", deviceUserID, id))
		},
	}

	add.Flags().StringVar(&id, "id", "", "employee id")
	add.Flags().StringVar(&name, "name", "", "employee name")
	add.Flags().StringVar(&deviceUserID, "device-user-id", "", "user id as enrolled on the device")
	_ = add.MarkFlagRequired("id")
	_ = add.MarkFlagRequired("device-user-id")

	cmd.AddCommand(add)

	return cmd
}

// NewVersionCommand prints the build version.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the punchctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format == FormatJSON {
				return opts.formatter(cmd).Render(map[string]string{
					"version":  version.GetVersion(),
					"build_id": version.GetBuildID(),
				})
			}

			return opts.formatter(cmd).Render(version.GetFullVersion())
		},
	}
}
