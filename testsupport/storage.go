/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements. See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package testsupport

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/jackc/pgx/v5"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/storage"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// StatementKind identifies the mapping table statements
// understood by MemoryStorage
type StatementKind string

const (
	CreateStatement StatementKind = "CREATE"
	InsertStatement StatementKind = "INSERT"
	SelectStatement StatementKind = "SELECT"
	DropStatement   StatementKind = "DROP"
	ExistsCheck     StatementKind = "EXISTS"
)

const qualifiedIdentifier = `(?:"(?:[^"]|"")+"\.)?"((?:[^"]|"")+)"`

var (
	createPattern = regexp.MustCompile(`(?is)^\s*CREATE TABLE IF NOT EXISTS\s+` + qualifiedIdentifier)
	insertPattern = regexp.MustCompile(`(?is)^\s*INSERT INTO\s+` + qualifiedIdentifier)
	selectPattern = regexp.MustCompile(`(?is)^\s*SELECT\s.*?\sFROM\s+` + qualifiedIdentifier)
	dropPattern   = regexp.MustCompile(`(?is)^\s*DROP TABLE IF EXISTS\s+` + qualifiedIdentifier)
)

type memoryState struct {
	tables  map[string][]storage.Row
	creates map[string]int
	drops   map[string]int
}

func (ms *memoryState) clone() *memoryState {
	c := &memoryState{
		tables:  make(map[string][]storage.Row, len(ms.tables)),
		creates: make(map[string]int, len(ms.creates)),
		drops:   make(map[string]int, len(ms.drops)),
	}
	for name, rows := range ms.tables {
		c.tables[name] = append(make([]storage.Row, 0, len(rows)), rows...)
	}
	for name, count := range ms.creates {
		c.creates[name] = count
	}
	for name, count := range ms.drops {
		c.drops[name] = count
	}
	return c
}

// MemoryStorage is an in-memory storage.Storage understanding the
// statements issued against mapping tables. It counts table
// creations and drops and supports injecting failures.
type MemoryStorage struct {
	mutex         sync.Mutex
	schema        string
	state         *memoryState
	failures      map[StatementKind]error
	existsLatency time.Duration
	existsCalls   int
	statements    []string
}

func NewMemoryStorage(
	schema string,
) *MemoryStorage {

	return &MemoryStorage{
		schema: schema,
		state: &memoryState{
			tables:  make(map[string][]storage.Row),
			creates: make(map[string]int),
			drops:   make(map[string]int),
		},
		failures: make(map[StatementKind]error),
	}
}

func (m *MemoryStorage) QualifiedName(
	tableName string,
) string {

	return pgx.Identifier{m.schema, tableName}.Sanitize()
}

func (m *MemoryStorage) TableExists(
	ctx context.Context, tableName string, timeout time.Duration,
) (bool, error) {

	m.mutex.Lock()
	m.existsCalls++
	latency := m.existsLatency
	err := m.failures[ExistsCheck]
	m.mutex.Unlock()

	if err != nil {
		return false, err
	}

	if latency > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return false, &columnmapping.StorageTimeoutError{
				TableName: tableName,
				Timeout:   timeout,
				Err:       ctx.Err(),
			}
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, present := m.state.tables[tableName]
	return present, nil
}

func (m *MemoryStorage) Execute(
	_ context.Context, query string, args ...any,
) ([]storage.Row, error) {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.apply(m.state, query, args)
}

func (m *MemoryStorage) InTransaction(
	_ context.Context, fn func(executor storage.Executor) error,
) error {

	m.mutex.Lock()
	tx := &memoryTransaction{
		storage: m,
		state:   m.state.clone(),
	}
	m.mutex.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.state = tx.state
	return nil
}

// FailOn makes every following statement of the given kind fail
// with err, nil removes the failure again
func (m *MemoryStorage) FailOn(
	kind StatementKind, err error,
) {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err == nil {
		delete(m.failures, kind)
		return
	}
	m.failures[kind] = err
}

// SetExistsLatency delays every existence check by latency
func (m *MemoryStorage) SetExistsLatency(
	latency time.Duration,
) {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.existsLatency = latency
}

func (m *MemoryStorage) HasTable(
	tableName string,
) bool {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, present := m.state.tables[tableName]
	return present
}

// Rows returns the rows of the given table ordered by mapped_name
func (m *MemoryStorage) Rows(
	tableName string,
) []storage.Row {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return sortedRows(m.state.tables[tableName])
}

// Creates returns how often the given table was created
func (m *MemoryStorage) Creates(
	tableName string,
) int {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state.creates[tableName]
}

// Drops returns how often the given table was dropped
func (m *MemoryStorage) Drops(
	tableName string,
) int {

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state.drops[tableName]
}

func (m *MemoryStorage) ExistsCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.existsCalls
}

// Statements returns all statements executed so far
func (m *MemoryStorage) Statements() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append(make([]string, 0, len(m.statements)), m.statements...)
}

func (m *MemoryStorage) apply(
	state *memoryState, query string, args []any,
) ([]storage.Row, error) {

	m.statements = append(m.statements, query)

	if match := createPattern.FindStringSubmatch(query); match != nil {
		if err := m.failures[CreateStatement]; err != nil {
			return nil, err
		}
		tableName := unquote(match[1])
		if _, present := state.tables[tableName]; !present {
			state.tables[tableName] = make([]storage.Row, 0)
			state.creates[tableName]++
		}
		return []storage.Row{}, nil
	}

	if match := insertPattern.FindStringSubmatch(query); match != nil {
		if err := m.failures[InsertStatement]; err != nil {
			return nil, err
		}
		tableName := unquote(match[1])
		rows, present := state.tables[tableName]
		if !present {
			return nil, errors.Errorf("relation \"%s\" does not exist", tableName)
		}
		if len(args) != 4 {
			return nil, errors.Errorf("expected 4 parameters, got %d", len(args))
		}
		for _, row := range rows {
			if row["mapped_name"] == args[0] {
				// ON CONFLICT DO NOTHING
				return []storage.Row{}, nil
			}
		}
		state.tables[tableName] = append(rows, storage.Row{
			"mapped_name":   args[0],
			"original_name": args[1],
			"column_type":   args[2],
			"resource_id":   args[3],
		})
		return []storage.Row{}, nil
	}

	if match := selectPattern.FindStringSubmatch(query); match != nil {
		if err := m.failures[SelectStatement]; err != nil {
			return nil, err
		}
		tableName := unquote(match[1])
		rows, present := state.tables[tableName]
		if !present {
			return nil, errors.Errorf("relation \"%s\" does not exist", tableName)
		}
		return sortedRows(rows), nil
	}

	if match := dropPattern.FindStringSubmatch(query); match != nil {
		if err := m.failures[DropStatement]; err != nil {
			return nil, err
		}
		tableName := unquote(match[1])
		if _, present := state.tables[tableName]; present {
			delete(state.tables, tableName)
			state.drops[tableName]++
		}
		return []storage.Row{}, nil
	}

	return nil, errors.Errorf("unsupported statement: %s", query)
}

type memoryTransaction struct {
	storage *MemoryStorage
	state   *memoryState
}

func (t *memoryTransaction) Execute(
	_ context.Context, query string, args ...any,
) ([]storage.Row, error) {

	t.storage.mutex.Lock()
	defer t.storage.mutex.Unlock()
	return t.storage.apply(t.state, query, args)
}

func sortedRows(
	rows []storage.Row,
) []storage.Row {

	result := make([]storage.Row, 0, len(rows))
	for _, row := range rows {
		c := make(storage.Row, len(row))
		for k, v := range row {
			c[k] = v
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["mapped_name"].(string) < result[j]["mapped_name"].(string)
	})
	return result
}

func unquote(
	identifier string,
) string {

	return strings.ReplaceAll(identifier, `""`, `"`)
}
