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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errFakeScanMismatch   = errors.New("scan mismatch")
	errFakeUnsupportedDst = errors.New("unsupported destination type")
	errFakeExhausted      = errors.New("no scripted batch results left")
)

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("%w: dest=%d values=%d", errFakeScanMismatch, len(dest), len(values))
	}

	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr, _ = values[i].(string)
		case *int32:
			*ptr, _ = values[i].(int32)
		case *bool:
			*ptr, _ = values[i].(bool)
		case *time.Time:
			*ptr, _ = values[i].(time.Time)
		default:
			return fmt.Errorf("%w: %T", errFakeUnsupportedDst, d)
		}
	}

	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return assign(dest, r.values)
}

type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}

	r.idx++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.idx-1])
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

type fakeBatchResults struct {
	execCalls  int
	execErrAt  int
	execErr    error
	closeCalls int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()

	if f.execErr != nil && f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errFakeUnsupportedDst }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return &fakeRow{err: errFakeUnsupportedDst} }

func (f *fakeBatchResults) Close() error {
	f.closeCalls++

	return nil
}

// fakeExecutor scripts query results and records every statement.
type fakeExecutor struct {
	execs   []string
	execErr error

	rows     *fakeRows
	queryErr error
	row      *fakeRow

	batches    []*fakeBatchResults
	batchCalls int
	queued     []int
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, strings.TrimSpace(sql))

	return pgconn.NewCommandTag("OK"), f.execErr
}

func (f *fakeExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return f.rows, nil
}

func (f *fakeExecutor) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func (f *fakeExecutor) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.queued = append(f.queued, b.Len())

	if f.batchCalls >= len(f.batches) {
		f.batchCalls++

		return &fakeBatchResults{execErr: errFakeExhausted}
	}

	br := f.batches[f.batchCalls]
	f.batchCalls++

	return br
}

// fakeTx records the statements of one transaction.
type fakeTx struct {
	execs     []string
	insertTag string
	insertErr error
	exists    bool
	commitErr error
	commits   int
	rollbacks int
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	stmt := strings.TrimSpace(sql)
	t.execs = append(t.execs, firstWords(stmt))

	if strings.HasPrefix(stmt, "INSERT INTO employee_checkins") {
		if t.insertErr != nil {
			return pgconn.CommandTag{}, t.insertErr
		}

		return pgconn.NewCommandTag(t.insertTag), nil
	}

	return pgconn.NewCommandTag("SAVEPOINT"), nil
}

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return &fakeRow{values: []any{t.exists}}
}

func (t *fakeTx) Commit(context.Context) error {
	t.commits++

	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rollbacks++

	return nil
}

func firstWords(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) > 3 {
		fields = fields[:3]
	}

	return strings.Join(fields, " ")
}
