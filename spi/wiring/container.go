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
	"github.com/samber/do"
	"reflect"
)

type Container interface {
	// Service resolves the service matching the type of the
	// given pointer's target and assigns it
	Service(service any) error
	// Shutdown stops all created services implementing
	// do.Shutdownable in reverse creation order
	Shutdown() error
}

func NewContainer(
	modules ...Module,
) (Container, error) {

	injector := do.New()
	for _, module := range modules {
		module.register(injector)
	}

	for _, module := range modules {
		if err := module.initialize(injector); err != nil {
			return nil, err
		}
	}

	return &container{
		injector: injector,
	}, nil
}

type container struct {
	injector *do.Injector
}

func (c *container) Service(
	service any,
) error {

	target := reflect.ValueOf(service)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return errors.Errorf("Service requires a non-nil pointer, got %T", service)
	}
	target = target.Elem()

	instance, err := do.InvokeNamed[any](c.injector, target.Type().String())
	if err != nil {
		return err
	}
	target.Set(reflect.ValueOf(instance))
	return nil
}

func (c *container) Shutdown() error {
	if err := c.injector.Shutdown(); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}
