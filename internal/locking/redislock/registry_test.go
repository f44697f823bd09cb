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
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/locking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRedisLocker_Registered(
	t *testing.T,
) {

	ttl := 10
	c := &config.Config{
		Locking: config.LockingConfig{
			Type: config.RedisLocking,
			Redis: config.RedisLockingConfig{
				Address: "redis.example.com:6380",
				TTL:     ttl,
			},
		},
	}

	locker, err := locking.NewLocker(config.RedisLocking, c, nil)
	require.NoError(t, err)

	redisLocker := locker.(*RedisLocker)
	assert.Equal(t, "redis.example.com:6380", redisLocker.client.Options().Addr)
	assert.Equal(t, config.DefaultRedisLockingRetries, redisLocker.retries)
	assert.Equal(t, "column-mapper:lock:res-1", lockKey("res-1"))
	assert.NoError(t, redisLocker.Stop())
}
