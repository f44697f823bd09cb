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
	"github.com/samber/lo"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// PostConstructable services are called right after their
// constructor returned
type PostConstructable interface {
	PostConstruct() error
}

type ProvideOption func(binding *binding)

// ForceInitialization creates the service when the container is
// built, even if nothing depends on it
func ForceInitialization() ProvideOption {
	return func(binding *binding) {
		binding.eager = true
	}
}

// Module is a named set of constructors. Every constructor
// provides the service of its first return value, parameters
// are resolved by type.
type Module interface {
	Provide(constructor any, options ...ProvideOption)
	Invoke(call any)
	register(injector *do.Injector)
	initialize(injector *do.Injector) error
}

func DefineModule(
	name string, definer func(module Module),
) Module {

	m := &module{
		name: name,
	}
	definer(m)
	return m
}

type module struct {
	name     string
	bindings []*binding
}

type binding struct {
	serviceName string
	eager       bool
	provider    do.Provider[any]
	invoker     func(injector *do.Injector) error
}

func (m *module) Provide(
	constructor any, options ...ProvideOption,
) {

	t, v := functionOf(constructor)
	if t.NumOut() == 0 || t.NumOut() > 2 {
		panic(errors.Errorf("Constructor %s must return a service and optionally an error", t.String()))
	}
	if t.NumOut() == 2 && !t.Out(1).ConvertibleTo(errorType) {
		panic(errors.Errorf("Constructor %s returns two values, but the second one isn't an error", t.String()))
	}

	b := &binding{
		serviceName: t.Out(0).String(),
	}
	b.provider = func(injector *do.Injector) (any, error) {
		results, err := call(injector, t, v)
		if err != nil {
			return nil, err
		}
		if len(results) == 2 {
			if err := errorOf(results[1]); err != nil {
				return nil, err
			}
		}

		service := results[0].Interface()
		if pc, ok := service.(PostConstructable); ok {
			if err := pc.PostConstruct(); err != nil {
				return nil, err
			}
		}
		return service, nil
	}

	for _, option := range options {
		option(b)
	}
	m.bindings = append(m.bindings, b)
}

func (m *module) Invoke(
	fn any,
) {

	t, v := functionOf(fn)
	if t.NumOut() > 1 || (t.NumOut() == 1 && !t.Out(0).ConvertibleTo(errorType)) {
		panic(errors.Errorf("Invocation %s may only return an error", t.String()))
	}

	m.bindings = append(m.bindings, &binding{
		invoker: func(injector *do.Injector) error {
			results, err := call(injector, t, v)
			if err != nil {
				return err
			}
			if len(results) == 1 {
				return errorOf(results[0])
			}
			return nil
		},
	})
}

func (m *module) register(
	injector *do.Injector,
) {

	for _, b := range m.bindings {
		if b.provider == nil {
			continue
		}
		// Later modules replace services of earlier ones
		if lo.Contains(injector.ListProvidedServices(), b.serviceName) {
			do.OverrideNamed(injector, b.serviceName, b.provider)
		} else {
			do.ProvideNamed(injector, b.serviceName, b.provider)
		}
	}
}

func (m *module) initialize(
	injector *do.Injector,
) error {

	for _, b := range m.bindings {
		if b.invoker != nil {
			if err := b.invoker(injector); err != nil {
				return errors.Wrap(err, 0)
			}
		}
		if b.eager {
			if _, err := do.InvokeNamed[any](injector, b.serviceName); err != nil {
				return errors.Wrap(err, 0)
			}
		}
	}
	return nil
}

func functionOf(
	fn any,
) (reflect.Type, reflect.Value) {

	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(errors.Errorf("Type %v is not a function", t))
	}
	return t, reflect.ValueOf(fn)
}

func call(
	injector *do.Injector, t reflect.Type, v reflect.Value,
) ([]reflect.Value, error) {

	params := make([]reflect.Value, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		param, err := do.InvokeNamed[any](injector, t.In(i).String())
		if err != nil {
			return nil, err
		}
		params = append(params, reflect.ValueOf(param))
	}
	return v.Call(params), nil
}

func errorOf(
	value reflect.Value,
) error {

	if value.IsNil() {
		return nil
	}
	return value.Interface().(error)
}
