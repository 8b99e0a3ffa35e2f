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

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errMissingURL = errors.New("postgres: database url is required")
	errNilPool    = errors.New("postgres: nil pool")
)

const (
	sqlStateDeadlock             = "40P01"
	sqlStateSerializationFailure = "40001"
	sqlStateQueryCanceled        = "57014"
	sqlStateAdminShutdown        = "57P01"
	sqlStateUniqueViolation      = "23505"
)

// classifyError reports the SQLSTATE of a postgres error and whether a retry
// of the whole unit of work may succeed.
func classifyError(err error) (code string, transient bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case sqlStateDeadlock, sqlStateSerializationFailure, sqlStateQueryCanceled, sqlStateAdminShutdown:
		return pgErr.Code, true
	default:
		return pgErr.Code, false
	}
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	code, _ := classifyError(err)

	return code == sqlStateUniqueViolation
}
