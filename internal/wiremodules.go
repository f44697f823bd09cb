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

package internal

import (
	_ "github.com/noctarius/datastore-column-mapper/internal/catalog/ckan"
	_ "github.com/noctarius/datastore-column-mapper/internal/catalog/none"
	_ "github.com/noctarius/datastore-column-mapper/internal/locking/local"
	_ "github.com/noctarius/datastore-column-mapper/internal/locking/pglock"
	_ "github.com/noctarius/datastore-column-mapper/internal/locking/redislock"
	"github.com/noctarius/datastore-column-mapper/internal/mapper"
	"github.com/noctarius/datastore-column-mapper/internal/mappingstore"
	"github.com/noctarius/datastore-column-mapper/internal/reconciler"
	"github.com/noctarius/datastore-column-mapper/internal/rewriter"
	"github.com/noctarius/datastore-column-mapper/internal/stats"
	"github.com/noctarius/datastore-column-mapper/internal/storage/pgstorage"
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"github.com/noctarius/datastore-column-mapper/spi/storage"
	"github.com/noctarius/datastore-column-mapper/spi/wiring"
	"time"
)

// NewConfigModule provides the given configuration to all
// other modules
func NewConfigModule(
	c *config.Config,
) wiring.Module {

	return wiring.DefineModule(
		"Config", func(module wiring.Module) {
			module.Provide(func() *config.Config {
				return c
			})
		},
	)
}

var StaticModule = wiring.DefineModule(
	"Static", func(module wiring.Module) {
		module.Provide(pgstorage.NewPostgresStorage)
		module.Provide(mappingstore.NewCache)
		module.Provide(rewriter.NewRewriter)
		module.Provide(stats.NewStatsService)

		module.Provide(func(postgresStorage *pgstorage.PostgresStorage) storage.Storage {
			// The store only sees the narrow storage view
			return postgresStorage
		})

		module.Provide(func(
			c *config.Config, mappingStorage storage.Storage, cache *mappingstore.Cache,
		) (*mappingstore.Store, error) {

			statementTimeout := config.GetOrDefault(
				c, config.PropertyPostgresqlStatementTimeout, config.DefaultStatementTimeoutSeconds,
			)
			return mappingstore.NewStore(mappingStorage, cache, time.Second*time.Duration(statementTimeout),
				config.GetOrDefault(c, config.PropertyMappingIdentifierLimit, config.DefaultIdentifierLimit),
			)
		})

		module.Provide(func(
			c *config.Config, store *mappingstore.Store, catalog catalog.ResourceCatalog,
		) (*reconciler.Reconciler, error) {

			return reconciler.NewReconciler(store, catalog,
				config.GetOrDefault(c, config.PropertyMappingIdentifierLimit, config.DefaultIdentifierLimit),
				config.GetOrDefault(c, config.PropertyMappingSuffixReserve, config.DefaultSuffixReserve),
			)
		})

		module.Provide(func(
			store *mappingstore.Store, reconciler *reconciler.Reconciler, rewriter *rewriter.Rewriter,
			locker locking.Locker, statsService *stats.Service, postgresStorage *pgstorage.PostgresStorage,
		) (*mapper.ColumnMapper, error) {

			return mapper.NewColumnMapper(
				store, reconciler, rewriter, locker, statsService, postgresStorage, statsService,
			)
		})
	},
)

var DynamicModule = wiring.DefineModule(
	"Dynamic", func(module wiring.Module) {
		module.Provide(func(
			c *config.Config, postgresStorage *pgstorage.PostgresStorage,
		) (locking.Locker, error) {

			name := config.GetOrDefault(c, config.PropertyLocking, config.LocalLocking)
			return locking.NewLocker(name, c, postgresStorage.Pool())
		})

		module.Provide(func(c *config.Config) (catalog.ResourceCatalog, error) {
			name := config.GetOrDefault(c, config.PropertyCatalog, config.NoneCatalog)
			return catalog.NewCatalog(name, c)
		})
	},
)

// NewColumnMapper wires all modules for the given configuration
// and returns the ready to start ColumnMapper
func NewColumnMapper(
	c *config.Config,
) (*mapper.ColumnMapper, error) {

	container, err := wiring.NewContainer(NewConfigModule(c), StaticModule, DynamicModule)
	if err != nil {
		return nil, err
	}

	var columnMapper *mapper.ColumnMapper
	if err := container.Service(&columnMapper); err != nil {
		return nil, err
	}
	return columnMapper, nil
}
