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

package pglock

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/internal/locking/local"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"sync"
)

// advisoryLockClass is the first key of all advisory locks, the
// second key is derived from the resource id
const advisoryLockClass = 0x434d

const lockQuery = "SELECT pg_advisory_lock($1::int4, hashtext($2))"

const unlockQuery = "SELECT pg_advisory_unlock($1::int4, hashtext($2))"

func init() {
	locking.RegisterLocker(config.PostgreSQLLocking, newAdvisoryLocker)
}

// AdvisoryLocker serializes per-resource operations using
// PostgreSQL session level advisory locks. Every held lock
// occupies one pool connection. Waiters of the same process queue
// on a local lock first, so they don't exhaust the pool while the
// lock holder still needs connections for its own work.
type AdvisoryLocker struct {
	logger *logging.Logger
	pool   *pgxpool.Pool
	local  *local.LocalLocker
}

func newAdvisoryLocker(
	_ *config.Config, pool *pgxpool.Pool,
) (locking.Locker, error) {

	return NewAdvisoryLocker(pool)
}

func NewAdvisoryLocker(
	pool *pgxpool.Pool,
) (*AdvisoryLocker, error) {

	if pool == nil {
		return nil, errors.Errorf("postgresql locking requires a connection pool")
	}

	logger, err := logging.NewLogger("AdvisoryLocker")
	if err != nil {
		return nil, err
	}

	return &AdvisoryLocker{
		logger: logger,
		pool:   pool,
		local:  local.NewLocalLocker(),
	}, nil
}

func (a *AdvisoryLocker) Start() error {
	return nil
}

func (a *AdvisoryLocker) Stop() error {
	return nil
}

func (a *AdvisoryLocker) Lock(
	ctx context.Context, resourceId string,
) (locking.Lock, error) {

	localLock, err := a.local.Lock(ctx, resourceId)
	if err != nil {
		return nil, err
	}

	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		_ = localLock.Release(ctx)
		return nil, errors.Wrap(err, 0)
	}

	if _, err := conn.Exec(ctx, lockQuery, advisoryLockClass, resourceId); err != nil {
		conn.Release()
		_ = localLock.Release(ctx)
		if pgErr, ok := asPgError(err); ok && pgErr.Code == pgerrcode.QueryCanceled {
			return nil, errors.Errorf("waiting for lock of resource %s cancelled", resourceId)
		}
		return nil, errors.Wrap(err, 0)
	}

	a.logger.Tracef("Obtained advisory lock of resource %s", resourceId)
	return &advisoryLock{
		logger:     a.logger,
		conn:       conn,
		localLock:  localLock,
		resourceId: resourceId,
	}, nil
}

type advisoryLock struct {
	logger     *logging.Logger
	conn       *pgxpool.Conn
	localLock  locking.Lock
	resourceId string
	once       sync.Once
}

func (a *advisoryLock) Release(
	ctx context.Context,
) (err error) {

	a.once.Do(func() {
		var unlocked bool
		if e := a.conn.QueryRow(ctx, unlockQuery, advisoryLockClass, a.resourceId).Scan(&unlocked); e != nil {
			// The session lock dies with the connection
			_ = a.conn.Conn().Close(context.Background())
			err = errors.Wrap(e, 0)
		} else if !unlocked {
			a.logger.Warnf("Advisory lock of resource %s wasn't held", a.resourceId)
		}
		a.conn.Release()
		if e := a.localLock.Release(ctx); e != nil && err == nil {
			err = e
		}
	})
	return
}

func asPgError(
	err error,
) (*pgconn.PgError, bool) {

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
