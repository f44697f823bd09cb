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

import (
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func Test_Env_Vars(t *testing.T) {
	os.Setenv("FOO_BAR", "foo")
	defer os.Unsetenv("FOO_BAR")

	os.Setenv("FOO_BAR__BAZ", "bar")
	defer os.Unsetenv("FOO_BAR__BAZ")

	// On Windows environment variables are case-insensitive, therefore,
	// this test will always fail if trying to use different casing versions
	if runtime.GOOS != "windows" {
		os.Setenv("foo_bar", "bar")
		defer os.Unsetenv("foo_bar")
	}

	v, found := findEnvProperty("foo.bar", "test")
	assert.Equal(t, true, found)
	assert.Equal(t, "foo", v)

	v, found = findEnvProperty("foo.bar_baz", "test")
	assert.Equal(t, true, found)
	assert.Equal(t, "bar", v)

	v, found = findEnvProperty("oof.bar", "test")
	assert.Equal(t, false, found)
	assert.Equal(t, "test", v)
}

func Test_Env_Vars_Typed(t *testing.T) {
	os.Setenv("MAPPING_IDENTIFIERLIMIT", "42")
	defer os.Unsetenv("MAPPING_IDENTIFIERLIMIT")

	os.Setenv("STATS_ENABLED", "true")
	defer os.Unsetenv("STATS_ENABLED")

	limit, found := findEnvProperty(PropertyMappingIdentifierLimit, 63)
	assert.True(t, found)
	assert.Equal(t, 42, limit)

	enabled, found := findEnvProperty(PropertyStatsEnabled, false)
	assert.True(t, found)
	assert.True(t, enabled)

	os.Setenv("MAPPING_SUFFIXRESERVE", "four")
	defer os.Unsetenv("MAPPING_SUFFIXRESERVE")

	reserve, found := findEnvProperty(PropertyMappingSuffixReserve, 4)
	assert.False(t, found)
	assert.Equal(t, 4, reserve)
}

func Test_Property_Extraction(t *testing.T) {
	config := Config{
		Locking: LockingConfig{
			Type: RedisLocking,
			Redis: RedisLockingConfig{
				Address: "localhost:6379",
			},
		},
	}

	value := reflect.ValueOf(config)
	v1, found := findProperty(value, "locking")
	assert.Equal(t, true, found)

	v2, found := findProperty(v1, "type")
	assert.Equal(t, true, found)
	assert.Equal(t, "redis", string(v2.Interface().(LockingType)))

	v3, found := findProperty(v1, "redis")
	assert.Equal(t, true, found)

	v4, found := findProperty(v3, "address")
	assert.Equal(t, true, found)
	assert.Equal(t, "localhost:6379", v4.Interface().(string))
}

func Test_Config_Property_Reading(t *testing.T) {
	config := &Config{
		Mapping: MappingConfig{
			IdentifierLimit: 50,
		},
		Catalog: CatalogConfig{
			Type: CkanCatalog,
		},
		Stats: StatsConfig{
			Enabled: lo.ToPtr(false),
		},
	}

	v1 := GetOrDefault(config, PropertyMappingIdentifierLimit, DefaultIdentifierLimit)
	assert.Equal(t, 50, v1)

	v2 := GetOrDefault(config, PropertyMappingSuffixReserve, DefaultSuffixReserve)
	assert.Equal(t, 4, v2)

	v3 := GetOrDefault(config, PropertyCatalog, NoneCatalog)
	assert.Equal(t, CkanCatalog, v3)

	v4 := GetOrDefault(config, PropertyStatsEnabled, true)
	assert.Equal(t, false, v4)

	v5 := GetOrDefault(config, "catalog.ckan.non.existent", true)
	assert.Equal(t, true, v5)

	os.Setenv("CATALOG_TYPE", "none")
	defer os.Unsetenv("CATALOG_TYPE")

	v6 := GetOrDefault(config, PropertyCatalog, CkanCatalog)
	assert.Equal(t, NoneCatalog, v6)
}

func Test_Load_Toml_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[postgresql]
connection = "postgres://localhost/datastore"
schema = "datastore"

[postgresql.timeouts]
statement = 12

[mapping]
identifierlimit = 64

[locking]
type = "postgresql"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config := &Config{}
	require.NoError(t, LoadFile(path, config))

	assert.Equal(t, "postgres://localhost/datastore", config.PostgreSQL.Connection)
	assert.Equal(t, "datastore", GetOrDefault(config, PropertyPostgresqlSchema, DefaultPostgresqlSchema))
	assert.Equal(t, 12, GetOrDefault(config, PropertyPostgresqlStatementTimeout, DefaultStatementTimeoutSeconds))
	assert.Equal(t, 64, GetOrDefault(config, PropertyMappingIdentifierLimit, DefaultIdentifierLimit))
	assert.Equal(t, PostgreSQLLocking, GetOrDefault(config, PropertyLocking, LocalLocking))
}

func Test_Load_Yaml_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
catalog:
  type: ckan
  ckan:
    url: http://ckan.local
    apikey: secret
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config := &Config{}
	require.NoError(t, LoadFile(path, config))

	assert.Equal(t, CkanCatalog, config.Catalog.Type)
	assert.Equal(t, "http://ckan.local", config.Catalog.Ckan.Url)
	assert.Equal(t, "secret", config.Catalog.Ckan.ApiKey)
	assert.Equal(t, "debug", config.Logging.Level)
}
