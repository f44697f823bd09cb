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

package wiring

import (
	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type testConfig struct {
	name string
}

type testService struct {
	config        *testConfig
	postConstruct bool
	shutdown      *[]string
}

func (ts *testService) PostConstruct() error {
	ts.postConstruct = true
	return nil
}

func (ts *testService) Shutdown() error {
	*ts.shutdown = append(*ts.shutdown, ts.config.name)
	return nil
}

func TestContainer_Resolves_Dependencies(
	t *testing.T,
) {

	shutdown := make([]string, 0)
	module := DefineModule("test", func(module Module) {
		module.Provide(func() *testConfig {
			return &testConfig{name: "first"}
		})
		module.Provide(func(config *testConfig) (*testService, error) {
			return &testService{config: config, shutdown: &shutdown}, nil
		})
	})

	container, err := NewContainer(module)
	require.NoError(t, err)

	var service *testService
	require.NoError(t, container.Service(&service))
	assert.Equal(t, "first", service.config.name)
	assert.True(t, service.postConstruct)

	require.NoError(t, container.Shutdown())
	assert.Equal(t, []string{"first"}, shutdown)
}

func TestContainer_Later_Module_Overrides(
	t *testing.T,
) {

	first := DefineModule("first", func(module Module) {
		module.Provide(func() *testConfig {
			return &testConfig{name: "first"}
		})
	})
	second := DefineModule("second", func(module Module) {
		module.Provide(func() *testConfig {
			return &testConfig{name: "second"}
		})
	})

	container, err := NewContainer(first, second)
	require.NoError(t, err)

	var config *testConfig
	require.NoError(t, container.Service(&config))
	assert.Equal(t, "second", config.name)
}

func TestContainer_Constructor_Error(
	t *testing.T,
) {

	module := DefineModule("test", func(module Module) {
		module.Provide(func() (*testConfig, error) {
			return nil, errors.New("broken")
		}, ForceInitialization())
	})

	_, err := NewContainer(module)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestContainer_Invoke(
	t *testing.T,
) {

	invoked := ""
	module := DefineModule("test", func(module Module) {
		module.Provide(func() *testConfig {
			return &testConfig{name: "invoked"}
		})
		module.Invoke(func(config *testConfig) error {
			invoked = config.name
			return nil
		})
	})

	_, err := NewContainer(module)
	require.NoError(t, err)
	assert.Equal(t, "invoked", invoked)
}

func TestModule_Rejects_Invalid_Constructors(
	t *testing.T,
) {

	assert.Panics(t, func() {
		DefineModule("test", func(module Module) {
			module.Provide("not a function")
		})
	})
	assert.Panics(t, func() {
		DefineModule("test", func(module Module) {
			module.Provide(func() (*testConfig, string) {
				return nil, ""
			})
		})
	})
}
