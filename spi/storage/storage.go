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

package storage

import (
	"context"
	"time"
)

// Row is a single result row, keyed by column name
type Row = map[string]any

// Executor runs statements against the storage engine.
type Executor interface {
	// Execute runs the given statement and returns all result
	// rows, or an empty slice for statements without results
	Execute(
		ctx context.Context, query string, args ...any,
	) ([]Row, error)
}

// Storage is the narrow view of the relational storage engine
// used to maintain mapping tables.
type Storage interface {
	Executor
	// TableExists checks the engine's catalog for the given
	// table, bounded by the given statement timeout
	TableExists(
		ctx context.Context, tableName string, timeout time.Duration,
	) (bool, error)
	// InTransaction runs fn inside a single transaction which
	// is committed when fn returns without an error
	InTransaction(
		ctx context.Context, fn func(executor Executor) error,
	) error
	// QualifiedName returns the quoted, schema-qualified
	// identifier of the given table
	QualifiedName(
		tableName string,
	) string
}
