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
	"os"
	"reflect"
	"strconv"
	"strings"
)

type CatalogType string

const (
	NoneCatalog CatalogType = "none"
	CkanCatalog CatalogType = "ckan"
)

type LockingType string

const (
	LocalLocking      LockingType = "local"
	RedisLocking      LockingType = "redis"
	PostgreSQLLocking LockingType = "postgresql"
)

type PostgreSQLConfig struct {
	Connection string                   `toml:"connection" yaml:"connection"`
	Password   string                   `toml:"password" yaml:"password"`
	Schema     string                   `toml:"schema" yaml:"schema"`
	Timeouts   PostgreSQLTimeoutsConfig `toml:"timeouts" yaml:"timeouts"`
	Pool       PostgreSQLPoolConfig     `toml:"pool" yaml:"pool"`
}

type PostgreSQLTimeoutsConfig struct {
	Statement int `toml:"statement" yaml:"statement"`
	Connect   int `toml:"connect" yaml:"connect"`
}

type PostgreSQLPoolConfig struct {
	MaxConnections int32 `toml:"maxconnections" yaml:"maxconnections"`
}

type MappingConfig struct {
	IdentifierLimit int `toml:"identifierlimit" yaml:"identifierlimit"`
	SuffixReserve   int `toml:"suffixreserve" yaml:"suffixreserve"`
}

type LockingConfig struct {
	Type  LockingType        `toml:"type" yaml:"type"`
	Redis RedisLockingConfig `toml:"redis" yaml:"redis"`
}

type RedisLockingConfig struct {
	Network  string                  `toml:"network" yaml:"network"`
	Address  string                  `toml:"address" yaml:"address"`
	Password string                  `toml:"password" yaml:"password"`
	Database int                     `toml:"database" yaml:"database"`
	TTL      int                     `toml:"ttl" yaml:"ttl"`
	Retries  RedisLockingRetryConfig `toml:"retries" yaml:"retries"`
}

type RedisLockingRetryConfig struct {
	MaxAttempts int `toml:"maxattempts" yaml:"maxattempts"`
	Backoff     int `toml:"backoff" yaml:"backoff"`
}

type CatalogConfig struct {
	Type CatalogType `toml:"type" yaml:"type"`
	Ckan CkanConfig  `toml:"ckan" yaml:"ckan"`
}

type CkanConfig struct {
	Url     string `toml:"url" yaml:"url"`
	ApiKey  string `toml:"apikey" yaml:"apikey"`
	Timeout int    `toml:"timeout" yaml:"timeout"`
}

type StatsConfig struct {
	Enabled *bool              `toml:"enabled" yaml:"enabled"`
	Address string             `toml:"address" yaml:"address"`
	Runtime RuntimeStatsConfig `toml:"runtime" yaml:"runtime"`
}

type RuntimeStatsConfig struct {
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

type Config struct {
	PostgreSQL PostgreSQLConfig `toml:"postgresql" yaml:"postgresql"`
	Mapping    MappingConfig    `toml:"mapping" yaml:"mapping"`
	Locking    LockingConfig    `toml:"locking" yaml:"locking"`
	Catalog    CatalogConfig    `toml:"catalog" yaml:"catalog"`
	Stats      StatsConfig      `toml:"stats" yaml:"stats"`
	Logging    LoggerConfig     `toml:"logging" yaml:"logging"`
}

type LoggerConfig struct {
	Level   string                     `toml:"level" yaml:"level"`
	Outputs LoggerOutputConfig         `toml:"outputs" yaml:"outputs"`
	Loggers map[string]SubLoggerConfig `toml:"loggers" yaml:"loggers"`
}

type LoggerOutputConfig struct {
	Console LoggerConsoleConfig `toml:"console" yaml:"console"`
	File    LoggerFileConfig    `toml:"file" yaml:"file"`
}

type SubLoggerConfig struct {
	Level   *string            `toml:"level" yaml:"level"`
	Outputs LoggerOutputConfig `toml:"outputs" yaml:"outputs"`
}

type LoggerConsoleConfig struct {
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

type LoggerFileConfig struct {
	Enabled     *bool   `toml:"enabled" yaml:"enabled"`
	Path        string  `toml:"path" yaml:"path"`
	Rotate      *bool   `toml:"rotate" yaml:"rotate"`
	MaxSize     *string `toml:"maxsize" yaml:"maxsize"`
	MaxDuration *int    `toml:"maxduration" yaml:"maxduration"`
	Compress    bool    `toml:"compress" yaml:"compress"`
}

// GetOrDefault resolves a dotted property path, first from the
// environment (e.g. MAPPING_IDENTIFIERLIMIT), then from the
// configuration, falling back to defaultValue when neither is set
func GetOrDefault[V any](
	config *Config, canonicalProperty string, defaultValue V,
) V {

	if env, found := findEnvProperty(canonicalProperty, defaultValue); found {
		return env
	}

	properties := strings.Split(canonicalProperty, ".")

	element := reflect.ValueOf(*config)
	for _, property := range properties {
		if e, ok := findProperty(element, property); ok {
			element = e
		} else {
			return defaultValue
		}
	}

	if !element.IsZero() &&
		!(element.Kind() == reflect.Ptr && element.IsNil()) {

		if element.Kind() == reflect.Ptr {
			element = element.Elem()
		}

		return element.Convert(reflect.TypeOf(defaultValue)).Interface().(V)
	}
	return defaultValue
}

func findEnvProperty[V any](
	canonicalProperty string, defaultValue V,
) (V, bool) {

	t := reflect.TypeOf(defaultValue)

	envVarName := strings.ToUpper(canonicalProperty)
	envVarName = strings.ReplaceAll(envVarName, "_", "__")
	envVarName = strings.ReplaceAll(envVarName, ".", "_")
	if val, ok := os.LookupEnv(envVarName); ok {
		cv, ok := convertEnvValue(val, t)
		if ok && !cv.IsZero() {
			return cv.Interface().(V), true
		}
	}
	return defaultValue, false
}

func convertEnvValue(
	val string, t reflect.Type,
) (reflect.Value, bool) {

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(val).Convert(t), true
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(b).Convert(t), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(i).Convert(t), true
	}
	return reflect.Value{}, false
}

func findProperty(
	element reflect.Value, property string,
) (reflect.Value, bool) {

	t := element.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue
		}

		if f.Tag.Get("toml") == property {
			return element.Field(i), true
		}
	}
	return reflect.Value{}, false
}
