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

// Package cli implements punchctl, the operator command line for punchsync.
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/carverauto/punchsync/pkg/logger"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string
	ConfigPath string
	Server     string
	APIKey     string
	Timeout    time.Duration

	backend Backend
	log     logger.Logger
}

type Option func(*RootOptions)

// WithBackend replaces the backend chosen from flags.
func WithBackend(b Backend) Option {
	return func(o *RootOptions) { o.backend = b }
}

func WithLogger(log logger.Logger) Option {
	return func(o *RootOptions) { o.log = log }
}

// NewRootCommand creates the punchctl root command.
func NewRootCommand(options ...Option) *cobra.Command {
	opts := &RootOptions{}
	for _, o := range options {
		o(opts)
	}

	cmd := &cobra.Command{
		Use:   "punchctl",
		Short: "Operate punchsync attendance devices",
		Long: `punchctl triggers device syncs and connection tests.

With --server it talks to a running punchsync API. Otherwise it loads the
service configuration from --config and works against the database directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			return opts.initLogger(cmd.Context())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "path to the punchsync config file")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "punchsync API base URL, e.g. http://localhost:8080")
	cmd.PersistentFlags().StringVar(&opts.APIKey, "api-key", "", "API key for --server (or PUNCHSYNC_API_KEY)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "overall command timeout")

	cmd.AddCommand(NewSyncDeviceCommand(opts))
	cmd.AddCommand(NewSyncAllCommand(opts))
	cmd.AddCommand(NewTestConnectionCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewDeviceCommand(opts))
	cmd.AddCommand(NewEmployeeCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func (o *RootOptions) initLogger(ctx context.Context) error {
	if o.log != nil {
		return nil
	}

	cfg := logger.DefaultConfig()
	cfg.Output = "stderr"
	cfg.Level = "warn"
	cfg.OTel.Enabled = false

	if o.Verbose {
		cfg.Level = "debug"
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logger.New(ctx, cfg)
	if err != nil {
		return err
	}

	o.log = log.WithComponent("punchctl")

	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// commandContext bounds a command by --timeout.
func (o *RootOptions) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, o.Timeout)
}
