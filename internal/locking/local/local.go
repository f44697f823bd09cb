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

package local

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/internal/containers"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"sync"
)

func init() {
	locking.RegisterLocker(config.LocalLocking, newLocalLocker)
}

type resourceLock struct {
	mutex sync.Mutex
	slot  chan struct{}
	refs  int
	dead  bool
}

// LocalLocker serializes per-resource operations inside a single
// process. Lock entries only live while someone holds or waits
// for them.
type LocalLocker struct {
	locks *containers.ConcurrentMap[string, *resourceLock]
}

func newLocalLocker(
	_ *config.Config, _ *pgxpool.Pool,
) (locking.Locker, error) {

	return NewLocalLocker(), nil
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: containers.NewConcurrentMap[string, *resourceLock](),
	}
}

func (l *LocalLocker) Start() error {
	return nil
}

func (l *LocalLocker) Stop() error {
	return nil
}

func (l *LocalLocker) Lock(
	ctx context.Context, resourceId string,
) (locking.Lock, error) {

	for {
		lock, _ := l.locks.LoadOrStore(resourceId, &resourceLock{slot: make(chan struct{}, 1)})

		lock.mutex.Lock()
		if lock.dead {
			// Lost the race against the last release, try again
			lock.mutex.Unlock()
			continue
		}
		lock.refs++
		lock.mutex.Unlock()

		select {
		case lock.slot <- struct{}{}:
			return &localLock{locker: l, resourceId: resourceId, lock: lock}, nil
		case <-ctx.Done():
			l.unref(resourceId, lock)
			return nil, errors.Wrap(ctx.Err(), 0)
		}
	}
}

// Held returns the number of resources currently locked or
// waited for
func (l *LocalLocker) Held() int {
	return l.locks.Length()
}

func (l *LocalLocker) unref(
	resourceId string, lock *resourceLock,
) {

	lock.mutex.Lock()
	defer lock.mutex.Unlock()
	lock.refs--
	if lock.refs == 0 {
		lock.dead = true
		l.locks.CompareAndDelete(resourceId, lock)
	}
}

type localLock struct {
	locker     *LocalLocker
	resourceId string
	lock       *resourceLock
	once       sync.Once
}

func (l *localLock) Release(
	_ context.Context,
) error {

	l.once.Do(func() {
		<-l.lock.slot
		l.locker.unref(l.resourceId, l.lock)
	})
	return nil
}
