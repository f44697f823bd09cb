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

package mapper

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/mappingstore"
	"github.com/noctarius/datastore-column-mapper/internal/reconciler"
	"github.com/noctarius/datastore-column-mapper/internal/rewriter"
	"github.com/noctarius/datastore-column-mapper/internal/stats"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"time"
)

// Lifecycle is implemented by collaborators which need to be
// started before the first and stopped after the last request
type Lifecycle interface {
	Start() error
	Stop() error
}

// ColumnMapper is the entry point of the load pipeline. It
// reconciles the mapping of a resource with every incoming batch
// and rewrites the batch accordingly.
type ColumnMapper struct {
	logger     *logging.Logger
	store      *mappingstore.Store
	reconciler *reconciler.Reconciler
	rewriter   *rewriter.Rewriter
	locker     locking.Locker
	reporter   *stats.Reporter
	lifecycles []Lifecycle
}

func NewColumnMapper(
	store *mappingstore.Store, reconciler *reconciler.Reconciler, rewriter *rewriter.Rewriter,
	locker locking.Locker, statsService *stats.Service, lifecycles ...Lifecycle,
) (*ColumnMapper, error) {

	logger, err := logging.NewLogger("ColumnMapper")
	if err != nil {
		return nil, err
	}

	return &ColumnMapper{
		logger:     logger,
		store:      store,
		reconciler: reconciler,
		rewriter:   rewriter,
		locker:     locker,
		reporter:   statsService.NewReporter("mapper"),
		lifecycles: lifecycles,
	}, nil
}

// Start starts the given lifecycles in order, followed by the
// locker
func (cm *ColumnMapper) Start() error {
	for _, lifecycle := range cm.lifecycles {
		if err := lifecycle.Start(); err != nil {
			return err
		}
	}
	return cm.locker.Start()
}

// Stop stops the locker and all lifecycles in reverse order,
// returning the first error
func (cm *ColumnMapper) Stop() error {
	var result error
	if err := cm.locker.Stop(); err != nil {
		result = err
	}
	for i := len(cm.lifecycles) - 1; i >= 0; i-- {
		if err := cm.lifecycles[i].Stop(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// Map reconciles the mapping of the request's resource and
// returns the rewritten batch
func (cm *ColumnMapper) Map(
	ctx context.Context, request *columnmapping.LoadRequest,
) (*columnmapping.LoadResult, error) {

	if request == nil || len(request.Fields) == 0 {
		resourceId := ""
		if request != nil {
			resourceId = request.ResourceId
		}
		cm.reporter.Failed("missing_fields")
		return nil, &columnmapping.MissingFieldsError{ResourceId: resourceId}
	}

	start := time.Now()
	var reconciliation *reconciler.Reconciliation
	if err := cm.withLock(ctx, request.ResourceId, func() (err error) {
		reconciliation, err = cm.reconciler.Reconcile(ctx, request)
		return
	}); err != nil {
		cm.reportFailure(err)
		return nil, err
	}

	fields, records := cm.rewriter.Rewrite(
		request.Fields, request.Records, reconciliation.Columns, reconciliation.Types,
	)

	cm.reporter.Reconciled(
		reconciliation.State.String(), reconciliation.Rebuilt, len(reconciliation.Entries), time.Since(start),
	)
	cm.logger.Debugf(
		"Mapped batch of resource %s (%d fields, %d records, state %s)",
		request.ResourceId, len(fields), len(records), reconciliation.State,
	)

	return &columnmapping.LoadResult{
		Fields:  fields,
		Records: records,
		Entries: reconciliation.Entries,
		State:   reconciliation.State,
		Rebuilt: reconciliation.Rebuilt,
	}, nil
}

// Mapping returns the current mapping entries of the resource,
// an empty slice if the resource has no mapping
func (cm *ColumnMapper) Mapping(
	ctx context.Context, resourceId string,
) ([]columnmapping.MappingEntry, error) {

	if mapping, present := cm.store.Cached(resourceId); present {
		return mapping.Entries(), nil
	}

	var entries []columnmapping.MappingEntry
	if err := cm.withLock(ctx, resourceId, func() error {
		exists, err := cm.store.Exists(ctx, resourceId)
		if err != nil {
			return err
		}
		if !exists {
			entries = make([]columnmapping.MappingEntry, 0)
			return nil
		}
		entries, err = cm.store.Load(ctx, resourceId)
		return err
	}); err != nil {
		cm.reportFailure(err)
		return nil, err
	}
	return entries, nil
}

// DeleteResource removes the mapping of a deleted data resource
func (cm *ColumnMapper) DeleteResource(
	ctx context.Context, resourceId string,
) error {

	if err := cm.withLock(ctx, resourceId, func() error {
		return cm.store.Delete(ctx, resourceId)
	}); err != nil {
		cm.reportFailure(err)
		return err
	}
	cm.reporter.Deleted()
	return nil
}

func (cm *ColumnMapper) withLock(
	ctx context.Context, resourceId string, fn func() error,
) error {

	lock, err := cm.locker.Lock(ctx, resourceId)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			cm.logger.Warnf("Failed to release lock of resource %s: %s", resourceId, err.Error())
		}
	}()
	return fn()
}

func (cm *ColumnMapper) reportFailure(
	err error,
) {

	switch {
	case columnmapping.IsMissingFields(err):
		cm.reporter.Failed("missing_fields")
	case columnmapping.IsStorageTimeout(err):
		cm.reporter.Failed("timeout")
	case columnmapping.IsStorageEngineError(err):
		cm.reporter.Failed("storage_engine")
	default:
		cm.reporter.Failed("other")
	}
}
