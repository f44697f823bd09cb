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
	"context"
)

// Lock is a held per-resource lock
type Lock interface {
	// Release gives up the lock. Releasing a lock twice is
	// a no-op.
	Release(
		ctx context.Context,
	) error
}

// Locker serializes all mapping mutations of a single resource,
// either inside the process or across processes. Locks of
// different resources are independent.
type Locker interface {
	Start() error
	Stop() error
	// Lock blocks until the lock of the resource is acquired or
	// the context is done
	Lock(
		ctx context.Context, resourceId string,
	) (Lock, error)
}
