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

package columnmapping

import "fmt"

const mappingTableSuffix = "_mapping"

// Field describes a logical column of an incoming batch. Id
// carries the original, possibly over-length, column name.
type Field struct {
	Id   string `json:"id" yaml:"id"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Record is a single data row keyed by field id.
type Record map[string]any

// MappingEntry is one persisted translation from an original
// column name to its storage-safe replacement.
type MappingEntry struct {
	OriginalName string `json:"original_name"`
	MappedName   string `json:"mapped_name"`
	ColumnType   string `json:"column_type"`
	ResourceId   string `json:"resource_id"`
}

func (me MappingEntry) String() string {
	return fmt.Sprintf("%s => %s (%s)", me.OriginalName, me.MappedName, me.ColumnType)
}

// ResourceDescriptor is the subset of the host catalog's resource
// metadata required to register a mapping table.
type ResourceDescriptor struct {
	Id          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	PackageId   string `json:"package_id,omitempty"`
	Description string `json:"description,omitempty"`
	Url         string `json:"url,omitempty"`
	Format      string `json:"format,omitempty"`
}

// LoadRequest is a field and record batch submitted for a data
// resource. Resource is optional, when missing or unnamed the
// resource metadata is requested from the catalog.
type LoadRequest struct {
	ResourceId string
	Resource   *ResourceDescriptor
	Fields     []Field
	Records    []Record
}

// LoadResult carries the rewritten batch and the mapping that
// was applied to it.
type LoadResult struct {
	Fields  []Field
	Records []Record
	Entries []MappingEntry
	State   State
	Rebuilt bool
}

// MappingTableName returns the deterministic name of the
// mapping table owned by the given data resource.
func MappingTableName(
	resourceId string,
) string {

	return resourceId + mappingTableSuffix
}
