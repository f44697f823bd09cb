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

package naming

import (
	"github.com/go-errors/errors"
	"strconv"
	"unicode/utf8"
)

const disambiguatorSeparator = "_"

// Truncator shortens over-length identifiers to fit into the
// storage engine's identifier limit. A Truncator instance covers
// a single batch and guarantees that no two distinct identifiers
// of that batch produce the same name.
type Truncator struct {
	limit         int
	suffixReserve int
	taken         map[string]bool
	produced      map[string]string
	counters      map[string]int
}

// NewTruncator creates a Truncator for the given identifier limit
// (in bytes), reserving suffixReserve bytes of every truncated name
// for the numeric disambiguator.
func NewTruncator(
	limit, suffixReserve int,
) (*Truncator, error) {

	if suffixReserve < len(disambiguatorSeparator)+1 {
		return nil, errors.Errorf(
			"suffix reserve %d too small, requires at least %d", suffixReserve, len(disambiguatorSeparator)+1,
		)
	}
	if limit <= suffixReserve {
		return nil, errors.Errorf(
			"identifier limit %d must be larger than the suffix reserve %d", limit, suffixReserve,
		)
	}

	return &Truncator{
		limit:         limit,
		suffixReserve: suffixReserve,
		taken:         make(map[string]bool),
		produced:      make(map[string]string),
		counters:      make(map[string]int),
	}, nil
}

// Limit returns the identifier limit
func (t *Truncator) Limit() int {
	return t.limit
}

// RequiresMapping returns true if the identifier is non-empty and
// reaches the identifier limit
func (t *Truncator) RequiresMapping(
	identifier string,
) bool {

	return RequiresMapping(identifier, t.limit)
}

// RequiresMapping returns true if the identifier is non-empty and
// its length in bytes reaches limit
func RequiresMapping(
	identifier string, limit int,
) bool {

	return identifier != "" && len(identifier) >= limit
}

// Reserve marks an identifier as used within the batch, without
// producing a mapping for it. Identifiers which pass through
// unchanged have to be reserved before truncating the rest of
// the batch.
func (t *Truncator) Reserve(
	identifier string,
) {

	if identifier != "" {
		t.taken[identifier] = true
	}
}

// Truncate returns the storage-safe name for the identifier and
// whether it differs from the original. Identifiers shorter than
// the limit are returned unchanged. Empty identifiers are never
// mapped.
func (t *Truncator) Truncate(
	identifier string,
) (mapped string, changed bool) {

	if identifier == "" {
		return identifier, false
	}

	if !t.RequiresMapping(identifier) {
		t.Reserve(identifier)
		return identifier, false
	}

	// The same identifier occurring twice resolves to the same name
	if name, present := t.produced[identifier]; present {
		return name, true
	}

	prefix, _ := SanitizeIdentifier(cutAtRuneBoundary(identifier, t.limit-t.suffixReserve))

	counter := t.counters[prefix]
	for {
		counter++
		suffix := disambiguatorSeparator + strconv.Itoa(counter)

		candidate := prefix
		if len(candidate)+len(suffix) > t.limit {
			candidate = cutAtRuneBoundary(candidate, t.limit-len(suffix))
		}
		candidate += suffix

		if !t.taken[candidate] {
			t.counters[prefix] = counter
			t.taken[candidate] = true
			t.produced[identifier] = candidate
			return candidate, true
		}
	}
}

func cutAtRuneBoundary(
	value string, maxLength int,
) string {

	if len(value) <= maxLength {
		return value
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
