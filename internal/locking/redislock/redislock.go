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

package redislock

import (
	"context"
	"fmt"
	"github.com/bsm/redislock"
	"github.com/go-errors/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"github.com/noctarius/datastore-column-mapper/spi/version"
	"github.com/redis/go-redis/v9"
	"time"
)

func init() {
	locking.RegisterLocker(config.RedisLocking, newRedisLocker)
}

// RedisLocker serializes per-resource operations across processes
// sharing the same redis instance
type RedisLocker struct {
	logger  *logging.Logger
	client  *redis.Client
	locker  *redislock.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
}

func newRedisLocker(
	c *config.Config, _ *pgxpool.Pool,
) (locking.Locker, error) {

	options := &redis.Options{
		Network: config.GetOrDefault(
			c, config.PropertyRedisLockingNetwork, "tcp",
		),
		Addr: config.GetOrDefault(
			c, config.PropertyRedisLockingAddress, "localhost:6379",
		),
		Password: config.GetOrDefault(
			c, config.PropertyRedisLockingPassword, "",
		),
		DB: config.GetOrDefault(
			c, config.PropertyRedisLockingDatabase, 0,
		),
	}

	ttl := config.GetOrDefault(c, config.PropertyRedisLockingTTL, config.DefaultRedisLockingTTLSeconds)
	retries := config.GetOrDefault(c, config.PropertyRedisLockingRetriesMax, config.DefaultRedisLockingRetries)
	backoff := config.GetOrDefault(
		c, config.PropertyRedisLockingRetriesBackoff, config.DefaultRedisLockingBackoffMillis,
	)

	return NewRedisLocker(
		redis.NewClient(options), time.Second*time.Duration(ttl), retries, time.Millisecond*time.Duration(backoff),
	)
}

func NewRedisLocker(
	client *redis.Client, ttl time.Duration, retries int, backoff time.Duration,
) (*RedisLocker, error) {

	logger, err := logging.NewLogger("RedisLocker")
	if err != nil {
		return nil, err
	}

	return &RedisLocker{
		logger:  logger,
		client:  client,
		locker:  redislock.New(client),
		ttl:     ttl,
		retries: retries,
		backoff: backoff,
	}, nil
}

func (r *RedisLocker) Start() error {
	if err := r.client.Ping(context.Background()).Err(); err != nil {
		return errors.Wrap(err, 0)
	}
	r.logger.Infof("Connected to redis at %s", r.client.Options().Addr)
	return nil
}

func (r *RedisLocker) Stop() error {
	if err := r.client.Close(); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (r *RedisLocker) Lock(
	ctx context.Context, resourceId string,
) (locking.Lock, error) {

	key := lockKey(resourceId)
	lock, err := r.locker.Obtain(ctx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.backoff), r.retries),
	})
	if err == redislock.ErrNotObtained {
		return nil, errors.Errorf("could not obtain lock %s after %d attempts", key, r.retries)
	} else if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	r.logger.Tracef("Obtained lock %s", key)
	return &redisLock{logger: r.logger, lock: lock}, nil
}

type redisLock struct {
	logger *logging.Logger
	lock   *redislock.Lock
}

func (r *redisLock) Release(
	ctx context.Context,
) error {

	if err := r.lock.Release(ctx); err != nil {
		if err == redislock.ErrLockNotHeld {
			// Released before or expired by its ttl
			r.logger.Debugf("Lock %s not held anymore", r.lock.Key())
			return nil
		}
		return errors.Wrap(err, 0)
	}
	return nil
}

func lockKey(
	resourceId string,
) string {

	return fmt.Sprintf("%s:lock:%s", version.BinName, resourceId)
}
