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

package locking

import (
	"github.com/go-errors/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"sync"
)

// Factory creates a Locker. The pool is the storage connection
// pool and is only used by database backed lockers.
type Factory func(config *config.Config, pool *pgxpool.Pool) (Locker, error)

var lockerRegistry = &registry{
	mutex:     sync.Mutex{},
	factories: make(map[config.LockingType]Factory),
}

type registry struct {
	mutex     sync.Mutex
	factories map[config.LockingType]Factory
}

// RegisterLocker registers a config.LockingType to a Factory
// implementation which creates the Locker when requested
func RegisterLocker(
	name config.LockingType, factory Factory,
) bool {

	lockerRegistry.mutex.Lock()
	defer lockerRegistry.mutex.Unlock()
	if _, present := lockerRegistry.factories[name]; !present {
		lockerRegistry.factories[name] = factory
		return true
	}
	return false
}

// NewLocker instantiates a new instance of the requested
// Locker when available, otherwise returns an error.
func NewLocker(
	name config.LockingType, config *config.Config, pool *pgxpool.Pool,
) (Locker, error) {

	lockerRegistry.mutex.Lock()
	defer lockerRegistry.mutex.Unlock()
	if f, present := lockerRegistry.factories[name]; present {
		return f(config, pool)
	}
	return nil, errors.Errorf("LockingType '%s' doesn't exist", name)
}
