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

package rewriter

import (
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/samber/lo"
)

// Rewriter replaces original column names with their mapped names
// in field descriptors and records
type Rewriter struct {
}

func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite applies the original to mapped name map (columns) and the
// mapped name to type map (types) to the batch. Non-empty types
// override the type of the field. Batches without any original
// name of the mapping are returned as given. The input slices and
// records are never modified.
func (r *Rewriter) Rewrite(
	fields []columnmapping.Field, records []columnmapping.Record,
	columns map[string]string, types map[string]string,
) ([]columnmapping.Field, []columnmapping.Record) {

	if !r.RequiresRewrite(fields, records, columns) {
		return fields, records
	}

	rewrittenFields := lo.Map(fields, func(field columnmapping.Field, _ int) columnmapping.Field {
		if mappedName, present := columns[field.Id]; present {
			field.Id = mappedName
		}
		if columnType := types[field.Id]; columnType != "" {
			field.Type = columnType
		}
		return field
	})

	rewrittenRecords := lo.Map(records, func(record columnmapping.Record, _ int) columnmapping.Record {
		return rewriteRecord(record, columns)
	})

	return rewrittenFields, rewrittenRecords
}

// RequiresRewrite returns true if any field id or record key is
// an original name of the mapping
func (r *Rewriter) RequiresRewrite(
	fields []columnmapping.Field, records []columnmapping.Record, columns map[string]string,
) bool {

	if len(columns) == 0 {
		return false
	}

	if lo.ContainsBy(fields, func(field columnmapping.Field) bool {
		_, present := columns[field.Id]
		return present
	}) {
		return true
	}

	return lo.ContainsBy(records, func(record columnmapping.Record) bool {
		return recordRequiresRewrite(record, columns)
	})
}

func recordRequiresRewrite(
	record columnmapping.Record, columns map[string]string,
) bool {

	for key := range record {
		if _, present := columns[key]; present {
			return true
		}
	}
	return false
}

// rewriteRecord renames all keys at once, a mapped name may
// equal another original name of the same mapping
func rewriteRecord(
	record columnmapping.Record, columns map[string]string,
) columnmapping.Record {

	if !recordRequiresRewrite(record, columns) {
		return record
	}

	rewritten := make(columnmapping.Record, len(record))
	for key, value := range record {
		if _, present := columns[key]; present {
			continue
		}
		rewritten[key] = value
	}
	for key, value := range record {
		if mappedName, present := columns[key]; present {
			rewritten[mappedName] = value
		}
	}
	return rewritten
}
