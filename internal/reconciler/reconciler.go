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

package reconciler

import (
	"context"
	"fmt"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/mappingstore"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/naming"
	"github.com/samber/lo"
)

// Reconciliation is the outcome of reconciling a batch's fields
// with the persisted mapping of its resource
type Reconciliation struct {
	// State is the state of the resource after the reconciliation
	State columnmapping.State
	// Rebuilt is true if a stale mapping was dropped
	Rebuilt bool
	// Registered is true if the mapping table was registered
	// with the catalog
	Registered bool
	Entries    []columnmapping.MappingEntry
	Columns    map[string]string
	Types      map[string]string
}

// Reconciler keeps the persisted mapping of a resource in line
// with the field set of its incoming batches. Calls for the same
// resource must be serialized by the caller.
type Reconciler struct {
	logger          *logging.Logger
	store           *mappingstore.Store
	catalog         catalog.ResourceCatalog
	identifierLimit int
	suffixReserve   int
}

func NewReconciler(
	store *mappingstore.Store, catalog catalog.ResourceCatalog, identifierLimit, suffixReserve int,
) (*Reconciler, error) {

	// Validate the truncation parameters early
	if _, err := naming.NewTruncator(identifierLimit, suffixReserve); err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger("SchemaReconciler")
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		logger:          logger,
		store:           store,
		catalog:         catalog,
		identifierLimit: identifierLimit,
		suffixReserve:   suffixReserve,
	}, nil
}

// Reconcile brings the mapping of the request's resource in line
// with the request's fields. A missing mapping is created, a
// mapping whose original names differ from the fields requiring a
// mapping is dropped and rebuilt, a matching mapping is reused.
// A persisted mapped name colliding with an incoming field counts
// as a mismatch.
func (r *Reconciler) Reconcile(
	ctx context.Context, request *columnmapping.LoadRequest,
) (*Reconciliation, error) {

	if len(request.Fields) == 0 {
		return nil, &columnmapping.MissingFieldsError{ResourceId: request.ResourceId}
	}

	resourceId := request.ResourceId
	state, err := r.State(ctx, resourceId)
	if err != nil {
		return nil, err
	}

	switch state {
	case columnmapping.NoMapping:
		// The table may have been dropped by another process
		r.store.Evict(resourceId)
		return r.create(ctx, request, false)

	default:
		entries, err := r.store.Load(ctx, resourceId)
		if err != nil {
			return nil, err
		}

		if r.matches(request.Fields, entries) {
			columns, types := r.store.Get(resourceId)
			return &Reconciliation{
				State:   columnmapping.MappingCurrent,
				Entries: entries,
				Columns: columns,
				Types:   types,
			}, nil
		}

		r.logger.Infof(
			"%s: resource %s, rebuilding its mapping (%d persisted entries)",
			columnmapping.ErrSchemaMismatchRecovered.Error(), resourceId, len(entries),
		)
		if err := r.store.Invalidate(ctx, resourceId); err != nil {
			return nil, err
		}
		return r.create(ctx, request, true)
	}
}

// State returns whether a mapping table exists for the resource
func (r *Reconciler) State(
	ctx context.Context, resourceId string,
) (columnmapping.State, error) {

	exists, err := r.store.Exists(ctx, resourceId)
	if err != nil {
		return columnmapping.NoMapping, err
	}
	if exists {
		return columnmapping.MappingCurrent, nil
	}
	return columnmapping.NoMapping, nil
}

// Compute creates the mapping entries of all fields exceeding the
// identifier limit. Names of the other fields are reserved first
// so no mapped name collides with a field passing through.
func (r *Reconciler) Compute(
	resourceId string, fields []columnmapping.Field,
) ([]columnmapping.MappingEntry, error) {

	truncator, err := naming.NewTruncator(r.identifierLimit, r.suffixReserve)
	if err != nil {
		return nil, err
	}

	for _, field := range fields {
		if !truncator.RequiresMapping(field.Id) {
			truncator.Reserve(field.Id)
		}
	}

	entries := make([]columnmapping.MappingEntry, 0)
	seen := make(map[string]bool)
	for _, field := range fields {
		if !truncator.RequiresMapping(field.Id) || seen[field.Id] {
			continue
		}
		seen[field.Id] = true

		mappedName, _ := truncator.Truncate(field.Id)
		entries = append(entries, columnmapping.MappingEntry{
			OriginalName: field.Id,
			MappedName:   mappedName,
			ColumnType:   field.Type,
			ResourceId:   resourceId,
		})
	}
	return entries, nil
}

func (r *Reconciler) create(
	ctx context.Context, request *columnmapping.LoadRequest, rebuilt bool,
) (*Reconciliation, error) {

	resourceId := request.ResourceId
	entries, err := r.Compute(resourceId, request.Fields)
	if err != nil {
		return nil, err
	}

	// Nothing to map, no mapping table required
	if len(entries) == 0 {
		return &Reconciliation{
			State:   columnmapping.NoMapping,
			Rebuilt: rebuilt,
			Entries: entries,
			Columns: make(map[string]string),
			Types:   make(map[string]string),
		}, nil
	}

	if err := r.store.Put(ctx, resourceId, entries); err != nil {
		return nil, err
	}

	registered := false
	if !rebuilt {
		if registered, err = r.register(ctx, request); err != nil {
			// Drop the unregistered table, the next load creates
			// and registers it again
			if dropErr := r.store.Invalidate(ctx, resourceId); dropErr != nil {
				r.logger.Warnf(
					"Failed to drop unregistered mapping of resource %s: %v", resourceId, dropErr,
				)
			}
			return nil, err
		}
	}

	r.logger.Verbosef("Created mapping of resource %s with %d entries", resourceId, len(entries))
	columns, types := r.store.Get(resourceId)
	return &Reconciliation{
		State:      columnmapping.MappingCurrent,
		Rebuilt:    rebuilt,
		Registered: registered,
		Entries:    entries,
		Columns:    columns,
		Types:      types,
	}, nil
}

// register announces the mapping table as a resource of the data
// resource's package
func (r *Reconciler) register(
	ctx context.Context, request *columnmapping.LoadRequest,
) (bool, error) {

	if r.catalog == nil {
		return false, nil
	}

	resource := request.Resource
	if resource == nil || resource.Name == "" {
		shown, err := r.catalog.ResourceShow(ctx, request.ResourceId)
		if err != nil {
			return false, columnmapping.NewStorageEngineError(
				fmt.Sprintf("resource_show of %s", request.ResourceId), err,
			)
		}
		if shown == nil {
			return false, columnmapping.NewStorageEngineError(
				fmt.Sprintf("resource_show of %s", request.ResourceId),
				errors.Errorf("no resource returned"),
			)
		}
		resource = shown
	}

	name := resource.Name
	if name == "" {
		name = resource.Description
	}

	created, err := r.catalog.ResourceCreate(ctx, columnmapping.ResourceDescriptor{
		Name:      columnmapping.MappingTableName(name),
		PackageId: resource.PackageId,
	})
	if err != nil {
		return false, columnmapping.NewStorageEngineError(
			fmt.Sprintf("resource_create for mapping of %s", request.ResourceId), err,
		)
	}
	if created != nil {
		r.logger.Infof("Registered mapping of resource %s as catalog resource %s", request.ResourceId, created.Id)
	}
	return true, nil
}

// matches compares the set of original names requiring a mapping
// with the set of persisted original names. Fields passing through
// must not carry a persisted mapped name.
func (r *Reconciler) matches(
	fields []columnmapping.Field, entries []columnmapping.MappingEntry,
) bool {

	incoming, passing := lo.FilterReject(fields, func(field columnmapping.Field, _ int) bool {
		return naming.RequiresMapping(field.Id, r.identifierLimit)
	})

	mappedNames := lo.SliceToMap(entries, func(entry columnmapping.MappingEntry) (string, bool) {
		return entry.MappedName, true
	})
	if lo.ContainsBy(passing, func(field columnmapping.Field) bool {
		return mappedNames[field.Id]
	}) {
		return false
	}

	return sameOriginalNames(incoming, entries)
}

func sameOriginalNames(
	fields []columnmapping.Field, entries []columnmapping.MappingEntry,
) bool {

	incoming := lo.Uniq(lo.Map(fields, func(field columnmapping.Field, _ int) string {
		return field.Id
	}))
	persisted := lo.Uniq(lo.Map(entries, func(entry columnmapping.MappingEntry, _ int) string {
		return entry.OriginalName
	}))

	if len(incoming) != len(persisted) {
		return false
	}
	left, right := lo.Difference(incoming, persisted)
	return len(left) == 0 && len(right) == 0
}
