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

package config

const (
	PropertyPostgresqlConnection         = "postgresql.connection"
	PropertyPostgresqlPassword           = "postgresql.password"
	PropertyPostgresqlSchema             = "postgresql.schema"
	PropertyPostgresqlStatementTimeout   = "postgresql.timeouts.statement"
	PropertyPostgresqlConnectTimeout     = "postgresql.timeouts.connect"
	PropertyPostgresqlPoolMaxConnections = "postgresql.pool.maxconnections"

	PropertyMappingIdentifierLimit = "mapping.identifierlimit"
	PropertyMappingSuffixReserve   = "mapping.suffixreserve"

	PropertyLocking                    = "locking.type"
	PropertyRedisLockingNetwork        = "locking.redis.network"
	PropertyRedisLockingAddress        = "locking.redis.address"
	PropertyRedisLockingPassword       = "locking.redis.password"
	PropertyRedisLockingDatabase       = "locking.redis.database"
	PropertyRedisLockingTTL            = "locking.redis.ttl"
	PropertyRedisLockingRetriesMax     = "locking.redis.retries.maxattempts"
	PropertyRedisLockingRetriesBackoff = "locking.redis.retries.backoff"

	PropertyCatalog            = "catalog.type"
	PropertyCatalogCkanUrl     = "catalog.ckan.url"
	PropertyCatalogCkanApiKey  = "catalog.ckan.apikey"
	PropertyCatalogCkanTimeout = "catalog.ckan.timeout"

	PropertyStatsEnabled        = "stats.enabled"
	PropertyStatsAddress        = "stats.address"
	PropertyRuntimeStatsEnabled = "stats.runtime.enabled"
)
