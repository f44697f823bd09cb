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

package catalog

import (
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"sync"
)

type Factory func(config *config.Config) (ResourceCatalog, error)

var catalogRegistry = &registry{
	mutex:     sync.Mutex{},
	factories: make(map[config.CatalogType]Factory),
}

type registry struct {
	mutex     sync.Mutex
	factories map[config.CatalogType]Factory
}

// RegisterCatalog registers a config.CatalogType to a Factory
// implementation which creates the ResourceCatalog when requested
func RegisterCatalog(
	name config.CatalogType, factory Factory,
) bool {

	catalogRegistry.mutex.Lock()
	defer catalogRegistry.mutex.Unlock()
	if _, present := catalogRegistry.factories[name]; !present {
		catalogRegistry.factories[name] = factory
		return true
	}
	return false
}

// NewCatalog instantiates a new instance of the requested
// ResourceCatalog when available, otherwise returns an error.
func NewCatalog(
	name config.CatalogType, config *config.Config,
) (ResourceCatalog, error) {

	catalogRegistry.mutex.Lock()
	defer catalogRegistry.mutex.Unlock()
	if f, present := catalogRegistry.factories[name]; present {
		return f(config)
	}
	return nil, errors.Errorf("CatalogType '%s' doesn't exist", name)
}
