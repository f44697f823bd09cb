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

package containers

import (
	"github.com/noctarius/datastore-column-mapper/internal/functional"
	"sync/atomic"
)

// CasCache is a copy-on-write map. Readers never block, writers
// replace the whole map using compare-and-swap.
type CasCache[K comparable, V any] struct {
	mapPtr atomic.Pointer[map[K]V]
}

func NewCasCache[K comparable, V any]() *CasCache[K, V] {
	return &CasCache[K, V]{
		mapPtr: atomic.Pointer[map[K]V]{},
	}
}

func (cc *CasCache[K, V]) Get(
	key K,
) (value V, ok bool) {

	m := cc.mapPtr.Load()
	if m == nil {
		return functional.Zero[V](), false
	}

	value, ok = (*m)[key]
	return
}

func (cc *CasCache[K, V]) Set(
	key K, value V,
) {

	for {
		o := cc.mapPtr.Load()
		n := cc.copyOf(o)
		n[key] = value

		// Try exchange
		if cc.mapPtr.CompareAndSwap(o, &n) {
			break
		}
	}
}

// Compute replaces the value of key with the result of fn. When
// fn fails the cache is left untouched.
func (cc *CasCache[K, V]) Compute(
	key K, fn func(old V, present bool) (V, error),
) (V, error) {

	for {
		// Reload, since it may have been changed concurrently
		o := cc.mapPtr.Load()

		var old V
		present := false
		if o != nil {
			old, present = (*o)[key]
		}

		value, err := fn(old, present)
		if err != nil {
			return functional.Zero[V](), err
		}

		n := cc.copyOf(o)
		n[key] = value

		// Try exchange
		if cc.mapPtr.CompareAndSwap(o, &n) {
			return value, nil
		}
	}
}

func (cc *CasCache[K, V]) Delete(
	key K,
) (value V, deleted bool) {

	for {
		o := cc.mapPtr.Load()
		if o == nil {
			return functional.Zero[V](), false
		}

		value, deleted = (*o)[key]
		if !deleted {
			return functional.Zero[V](), false
		}

		n := cc.copyOf(o)
		delete(n, key)

		// Try exchange
		if cc.mapPtr.CompareAndSwap(o, &n) {
			return value, true
		}
	}
}

func (cc *CasCache[K, V]) Keys() []K {
	m := cc.mapPtr.Load()
	if m == nil {
		return []K{}
	}
	keys := make([]K, 0, len(*m))
	for k := range *m {
		keys = append(keys, k)
	}
	return keys
}

func (cc *CasCache[K, V]) Length() int {
	m := cc.mapPtr.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}

func (cc *CasCache[K, V]) copyOf(
	o *map[K]V,
) map[K]V {

	if o == nil {
		return make(map[K]V)
	}
	n := make(map[K]V, len(*o)+1)
	for k, v := range *o {
		n[k] = v
	}
	return n
}
