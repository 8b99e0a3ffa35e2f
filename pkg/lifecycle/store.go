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

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/punchsync/pkg/attendance"
	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
	"github.com/carverauto/punchsync/pkg/punch"
	"github.com/carverauto/punchsync/pkg/store/postgres"
	"github.com/carverauto/punchsync/pkg/store/sqlite"
)

var errDatabaseRequired = errors.New("database.driver and database.url are required")

// Store is everything the service needs from a database driver.
type Store interface {
	punch.DeviceSource
	punch.EmployeeDirectory
	punch.CheckinStore
	attendance.Repository

	RegisterDevice(ctx context.Context, ep models.DeviceEndpoint) error
	RegisterEmployee(ctx context.Context, employeeID, name, deviceUserID string) error
}

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// OpenStore opens and migrates the configured database. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg *punch.DatabaseConfig, log logger.Logger) (Store, func(), error) {
	switch cfg.Driver {
	case punch.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}

		if err := postgres.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()

			return nil, nil, err
		}

		store, err := postgres.NewStore(pool, log)
		if err != nil {
			pool.Close()

			return nil, nil, err
		}

		return store, pool.Close, nil
	case punch.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.URL, log)
		if err != nil {
			return nil, nil, err
		}

		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close sqlite store")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %w", punch.ErrConfiguration, errDatabaseRequired)
	}
}
