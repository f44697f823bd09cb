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

package mappingstore

import (
	"context"
	"fmt"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/naming"
	"github.com/noctarius/datastore-column-mapper/spi/storage"
	"github.com/samber/lo"
	"time"
)

const createMappingTableQuery = `
CREATE TABLE IF NOT EXISTS %s (
    mapped_name TEXT PRIMARY KEY,
    original_name TEXT,
    column_type TEXT,
    resource_id TEXT
)`

const insertMappingEntryQuery = `
INSERT INTO %s (mapped_name, original_name, column_type, resource_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (mapped_name) DO NOTHING`

const selectMappingEntriesQuery = `
SELECT mapped_name, original_name, column_type, resource_id
FROM %s
ORDER BY mapped_name`

const dropMappingTableQuery = "DROP TABLE IF EXISTS %s"

// Store keeps the mapping entries of all resources, backed by one
// persisted mapping table per resource. Callers are expected to
// serialize calls for the same resource. Resources whose mapping
// table name would reach the identifier limit are rejected, since
// the storage engine would silently shorten the name.
type Store struct {
	logger           *logging.Logger
	storage          storage.Storage
	cache            *Cache
	statementTimeout time.Duration
	identifierLimit  int
}

func NewStore(
	storage storage.Storage, cache *Cache, statementTimeout time.Duration, identifierLimit int,
) (*Store, error) {

	logger, err := logging.NewLogger("MappingStore")
	if err != nil {
		return nil, err
	}

	return &Store{
		logger:           logger,
		storage:          storage,
		cache:            cache,
		statementTimeout: statementTimeout,
		identifierLimit:  identifierLimit,
	}, nil
}

// Get returns the cached original to mapped name and mapped name
// to column type maps, both empty if nothing is cached
func (s *Store) Get(
	resourceId string,
) (columns map[string]string, types map[string]string) {

	if mapping, present := s.cache.Get(resourceId); present {
		return mapping.Columns(), mapping.Types()
	}
	return make(map[string]string), make(map[string]string)
}

// Cached returns the cached snapshot of the resource's mapping
func (s *Store) Cached(
	resourceId string,
) (*ResourceMapping, bool) {

	return s.cache.Get(resourceId)
}

// Exists checks whether the mapping table of the resource exists,
// bounded by the configured statement timeout
func (s *Store) Exists(
	ctx context.Context, resourceId string,
) (bool, error) {

	tableName, err := s.mappingTableName(resourceId)
	if err != nil {
		return false, err
	}
	found, err := s.storage.TableExists(ctx, tableName, s.statementTimeout)
	if err != nil {
		return false, columnmapping.NewStorageEngineError(
			fmt.Sprintf("existence check of %s", tableName), err,
		)
	}
	return found, nil
}

// Load reads the persisted entries of the resource and replaces
// the cached mapping with them
func (s *Store) Load(
	ctx context.Context, resourceId string,
) ([]columnmapping.MappingEntry, error) {

	tableName, err := s.qualifiedMappingTableName(resourceId)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.Execute(ctx, fmt.Sprintf(selectMappingEntriesQuery, tableName))
	if err != nil {
		return nil, columnmapping.NewStorageEngineError(fmt.Sprintf("reading %s", tableName), err)
	}

	entries := make([]columnmapping.MappingEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, columnmapping.NewStorageEngineError(fmt.Sprintf("reading %s", tableName), err)
		}
		entries = append(entries, entry)
	}

	s.cache.Set(resourceId, newResourceMapping(resourceId, entries))
	s.logger.Debugf("Loaded %d mapping entries for resource %s", len(entries), resourceId)
	return entries, nil
}

// Put persists the given entries into the mapping table of the
// resource (creating the table when necessary) and merges them
// into the cache. Repeated calls with identical entries are no-ops.
// The cache is only updated after the entries were persisted, on
// conflicts the given entries replace cached ones.
func (s *Store) Put(
	ctx context.Context, resourceId string, entries []columnmapping.MappingEntry,
) error {

	if len(entries) == 0 {
		return nil
	}

	entries = lo.Map(entries, func(entry columnmapping.MappingEntry, _ int) columnmapping.MappingEntry {
		entry.ResourceId = resourceId
		return entry
	})

	tableName, err := s.qualifiedMappingTableName(resourceId)
	if err != nil {
		return err
	}
	if err := s.storage.InTransaction(ctx, func(executor storage.Executor) error {
		if _, err := executor.Execute(ctx, fmt.Sprintf(createMappingTableQuery, tableName)); err != nil {
			return err
		}

		insertQuery := fmt.Sprintf(insertMappingEntryQuery, tableName)
		for _, entry := range entries {
			if _, err := executor.Execute(ctx, insertQuery,
				entry.MappedName, entry.OriginalName, entry.ColumnType, entry.ResourceId,
			); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return columnmapping.NewStorageEngineError(fmt.Sprintf("persisting %s", tableName), err)
	}

	if _, err := s.cache.Compute(resourceId, func(old *ResourceMapping, present bool) (*ResourceMapping, error) {
		if !present {
			return newResourceMapping(resourceId, entries), nil
		}
		return old.merge(entries), nil
	}); err != nil {
		return errors.Wrap(err, 0)
	}

	s.logger.Verbosef("Persisted %d mapping entries for resource %s", len(entries), resourceId)
	return nil
}

// Invalidate drops the persisted mapping table of the resource
// and evicts its cache entry
func (s *Store) Invalidate(
	ctx context.Context, resourceId string,
) error {

	if err := s.drop(ctx, resourceId); err != nil {
		return err
	}
	s.logger.Infof("Invalidated mapping of resource %s", resourceId)
	return nil
}

// Delete removes all mapping state of a deleted resource
func (s *Store) Delete(
	ctx context.Context, resourceId string,
) error {

	if err := s.drop(ctx, resourceId); err != nil {
		return err
	}
	s.logger.Infof("Deleted mapping of removed resource %s", resourceId)
	return nil
}

// Evict removes the resource from the cache only
func (s *Store) Evict(
	resourceId string,
) {

	s.cache.Delete(resourceId)
}

func (s *Store) drop(
	ctx context.Context, resourceId string,
) error {

	tableName, err := s.qualifiedMappingTableName(resourceId)
	if err != nil {
		return err
	}
	if _, err := s.storage.Execute(ctx, fmt.Sprintf(dropMappingTableQuery, tableName)); err != nil {
		return columnmapping.NewStorageEngineError(fmt.Sprintf("dropping %s", tableName), err)
	}
	s.cache.Delete(resourceId)
	return nil
}

func (s *Store) mappingTableName(
	resourceId string,
) (string, error) {

	tableName := columnmapping.MappingTableName(resourceId)
	if naming.RequiresMapping(tableName, s.identifierLimit) {
		return "", columnmapping.NewStorageEngineError(
			fmt.Sprintf("mapping table of %s", resourceId),
			errors.Errorf(
				"table name %s has %d bytes, at most %d are allowed",
				tableName, len(tableName), s.identifierLimit-1,
			),
		)
	}
	return tableName, nil
}

func (s *Store) qualifiedMappingTableName(
	resourceId string,
) (string, error) {

	tableName, err := s.mappingTableName(resourceId)
	if err != nil {
		return "", err
	}
	return s.storage.QualifiedName(tableName), nil
}

func rowToEntry(
	row storage.Row,
) (columnmapping.MappingEntry, error) {

	mappedName, err := stringColumn(row, "mapped_name")
	if err != nil {
		return columnmapping.MappingEntry{}, err
	}
	originalName, err := stringColumn(row, "original_name")
	if err != nil {
		return columnmapping.MappingEntry{}, err
	}
	columnType, err := stringColumn(row, "column_type")
	if err != nil {
		return columnmapping.MappingEntry{}, err
	}
	resourceId, err := stringColumn(row, "resource_id")
	if err != nil {
		return columnmapping.MappingEntry{}, err
	}

	return columnmapping.MappingEntry{
		OriginalName: originalName,
		MappedName:   mappedName,
		ColumnType:   columnType,
		ResourceId:   resourceId,
	}, nil
}

func stringColumn(
	row storage.Row, column string,
) (string, error) {

	value, present := row[column]
	if !present {
		return "", errors.Errorf("column '%s' missing in mapping table row", column)
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", errors.Errorf("column '%s' has unexpected type %T", column, value)
}
