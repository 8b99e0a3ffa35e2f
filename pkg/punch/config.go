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

import (
	"fmt"
	"net"
	"time"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

const (
	DefaultBatchSize            = 100
	DefaultSyncTimeout          = 10 * time.Second
	DefaultProbeTimeout         = 5 * time.Second
	DefaultSyncInterval         = 5 * time.Minute
	DefaultDailyInterval        = 24 * time.Hour
	DefaultAttendanceWindowDays = 3

	defaultNATSURL    = "nats://localhost:4222"
	defaultStream     = "punchsync"
	defaultSubject    = "punchsync.events"
	defaultListenAddr = ":8090"
)

const (
	SourceStatic   = "static"
	SourceDatabase = "database"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the punchsync service configuration.
type Config struct {
	// DeviceSource is "static" (the Devices list) or "database".
	DeviceSource     string                  `json:"device_source" yaml:"device_source"`
	Devices          []models.DeviceEndpoint `json:"devices" yaml:"devices"`
	Timezone         string                  `json:"timezone" yaml:"timezone"`
	BatchSize        int                     `json:"batch_size" yaml:"batch_size"`
	SyncTimeout      models.Duration         `json:"sync_timeout" yaml:"sync_timeout"`
	ProbeTimeout     models.Duration         `json:"probe_timeout" yaml:"probe_timeout"`
	MaxConcurrency   int                     `json:"max_concurrency" yaml:"max_concurrency"`
	NetworkBlacklist []string                `json:"network_blacklist" yaml:"network_blacklist"`
	CircuitBreaker   *BreakerConfig          `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	Schedule         ScheduleConfig          `json:"schedule" yaml:"schedule"`
	Database         DatabaseConfig          `json:"database" yaml:"database"`
	StatePath        string                  `json:"state_path" yaml:"state_path"`
	NATS             *NATSConfig             `json:"nats,omitempty" yaml:"nats,omitempty"`
	API              *APIConfig              `json:"api,omitempty" yaml:"api,omitempty"`
	Logging          *logger.Config          `json:"logging,omitempty" yaml:"logging,omitempty"`
}

type ScheduleConfig struct {
	SyncInterval         models.Duration `json:"sync_interval" yaml:"sync_interval"`
	DailyInterval        models.Duration `json:"daily_interval" yaml:"daily_interval"`
	AttendanceWindowDays int             `json:"attendance_window_days" yaml:"attendance_window_days"`
	DisableDailyJobs     bool            `json:"disable_daily_jobs" yaml:"disable_daily_jobs"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	URL      string `json:"url" yaml:"url" sensitive:"true"`
	MaxConns int32  `json:"max_conns" yaml:"max_conns"`
}

type NATSConfig struct {
	URL           string `json:"url" yaml:"url"`
	Stream        string `json:"stream" yaml:"stream"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	CredsFile     string `json:"creds_file,omitempty" yaml:"creds_file,omitempty"`
}

type APIConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	APIKey     string `json:"api_key" yaml:"api_key" sensitive:"true"`
}

// BreakerConfig is the JSON form of CircuitBreakerConfig. A zero
// FailureThreshold disables the breaker.
type BreakerConfig struct {
	FailureThreshold int             `json:"failure_threshold" yaml:"failure_threshold"`
	SuccessThreshold int             `json:"success_threshold" yaml:"success_threshold"`
	Timeout          models.Duration `json:"timeout" yaml:"timeout"`
	ResetTimeout     models.Duration `json:"reset_timeout" yaml:"reset_timeout"`
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.DeviceSource == "" {
		c.DeviceSource = SourceStatic
		if len(c.Devices) == 0 && c.Database.URL != "" {
			c.DeviceSource = SourceDatabase
		}
	}

	switch c.DeviceSource {
	case SourceStatic:
	case SourceDatabase:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database device source requires database.url", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown device_source %q", ErrConfiguration, c.DeviceSource)
	}

	for i := range c.Devices {
		if err := validateEndpoint(&c.Devices[i]); err != nil {
			return err
		}
	}

	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	if c.SyncTimeout <= 0 {
		c.SyncTimeout = models.Duration(DefaultSyncTimeout)
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = models.Duration(DefaultProbeTimeout)
	}

	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 1
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := NewNetworkBlacklist(c.NetworkBlacklist, logger.NewTestLogger()); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	c.Schedule.setDefaults()

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.NATS != nil {
		c.NATS.setDefaults()
	}

	if c.API != nil && c.API.ListenAddr == "" {
		c.API.ListenAddr = defaultListenAddr
	}

	return nil
}

func validateEndpoint(ep *models.DeviceEndpoint) error {
	if ep.IP == "" {
		return fmt.Errorf("%w: device %q has no ip", ErrConfiguration, ep.Name)
	}

	if ep.Port == 0 {
		ep.Port = models.DefaultDevicePort
	}

	if ep.Port < 0 || ep.Port > 65535 {
		return fmt.Errorf("%w: device %q port %d out of range", ErrConfiguration, ep.Name, ep.Port)
	}

	if ep.Name == "" {
		ep.Name = net.JoinHostPort(ep.IP, fmt.Sprint(ep.Port))
	}

	return nil
}

func (s *ScheduleConfig) setDefaults() {
	if s.SyncInterval <= 0 {
		s.SyncInterval = models.Duration(DefaultSyncInterval)
	}

	if s.DailyInterval <= 0 {
		s.DailyInterval = models.Duration(DefaultDailyInterval)
	}

	if s.AttendanceWindowDays <= 0 {
		s.AttendanceWindowDays = DefaultAttendanceWindowDays
	}
}

func (d *DatabaseConfig) validate() error {
	switch d.Driver {
	case "":
		if d.URL != "" {
			d.Driver = DriverPostgres
		}
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrConfiguration, d.Driver)
	}

	return nil
}

func (n *NATSConfig) setDefaults() {
	if n.URL == "" {
		n.URL = defaultNATSURL
	}

	if n.Stream == "" {
		n.Stream = defaultStream
	}

	if n.SubjectPrefix == "" {
		n.SubjectPrefix = defaultSubject
	}
}

// Location resolves Timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrConfiguration, c.Timezone, err)
	}

	return loc, nil
}

// BreakerSettings returns the circuit breaker settings, or false when the
// breaker is disabled. It is off unless circuit_breaker sets a positive
// failure_threshold, so every enabled device is tried on every run.
func (c *Config) BreakerSettings() (CircuitBreakerConfig, bool) {
	if c.CircuitBreaker == nil || c.CircuitBreaker.FailureThreshold <= 0 {
		return CircuitBreakerConfig{}, false
	}

	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = c.CircuitBreaker.FailureThreshold

	if c.CircuitBreaker.SuccessThreshold > 0 {
		cfg.SuccessThreshold = c.CircuitBreaker.SuccessThreshold
	}

	if c.CircuitBreaker.Timeout > 0 {
		cfg.Timeout = time.Duration(c.CircuitBreaker.Timeout)
	}

	if c.CircuitBreaker.ResetTimeout > 0 {
		cfg.ResetTimeout = time.Duration(c.CircuitBreaker.ResetTimeout)
	}

	return cfg, true
}
