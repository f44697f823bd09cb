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

package mappingstore

import (
	"github.com/noctarius/datastore-column-mapper/internal/containers"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/samber/lo"
	"sort"
)

// Cache holds the current mapping of every resource known to
// the process. It is a cache, the persisted mapping tables stay
// authoritative.
type Cache = containers.CasCache[string, *ResourceMapping]

func NewCache() *Cache {
	return containers.NewCasCache[string, *ResourceMapping]()
}

// ResourceMapping is an immutable snapshot of a resource's
// mapping entries
type ResourceMapping struct {
	resourceId string
	columns    map[string]string
	types      map[string]string
	entries    []columnmapping.MappingEntry
}

func newResourceMapping(
	resourceId string, entries []columnmapping.MappingEntry,
) *ResourceMapping {

	rm := &ResourceMapping{
		resourceId: resourceId,
		columns:    make(map[string]string, len(entries)),
		types:      make(map[string]string, len(entries)),
		entries:    make([]columnmapping.MappingEntry, 0, len(entries)),
	}
	// First entry wins for both the mapped and the original name
	for _, entry := range entries {
		if _, present := rm.types[entry.MappedName]; present {
			continue
		}
		if _, present := rm.columns[entry.OriginalName]; present {
			continue
		}
		rm.columns[entry.OriginalName] = entry.MappedName
		rm.types[entry.MappedName] = entry.ColumnType
		rm.entries = append(rm.entries, entry)
	}
	sort.Slice(rm.entries, func(i, j int) bool {
		return rm.entries[i].MappedName < rm.entries[j].MappedName
	})
	return rm
}

// merge returns a new snapshot containing the given entries plus
// all existing entries not conflicting with them by mapped or
// original name
func (rm *ResourceMapping) merge(
	entries []columnmapping.MappingEntry,
) *ResourceMapping {

	merged := make([]columnmapping.MappingEntry, 0, len(entries)+len(rm.entries))
	merged = append(merged, entries...)
	return newResourceMapping(rm.resourceId, append(merged, rm.entries...))
}

func (rm *ResourceMapping) ResourceId() string {
	return rm.resourceId
}

// Columns returns a copy of the original to mapped name map
func (rm *ResourceMapping) Columns() map[string]string {
	return lo.Assign(rm.columns)
}

// Types returns a copy of the mapped name to column type map
func (rm *ResourceMapping) Types() map[string]string {
	return lo.Assign(rm.types)
}

// Entries returns a copy of the entries, ordered by mapped name
func (rm *ResourceMapping) Entries() []columnmapping.MappingEntry {
	entries := make([]columnmapping.MappingEntry, len(rm.entries))
	copy(entries, rm.entries)
	return entries
}

// OriginalNames returns the set of original names
func (rm *ResourceMapping) OriginalNames() []string {
	return lo.Keys(rm.columns)
}

func (rm *ResourceMapping) Length() int {
	return len(rm.entries)
}
