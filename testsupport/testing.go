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

package testsupport

import (
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/samber/lo"
	"strings"
)

// RandomResourceId returns a resource id unique enough to
// isolate mapping tables of concurrently running tests
func RandomResourceId() string {
	return "res_" + lo.RandomString(20, lo.LowerCaseLettersCharset)
}

// LongFieldName builds a field id of exactly length bytes
// starting with prefix
func LongFieldName(
	prefix string, length int,
) string {

	if len(prefix) >= length {
		return prefix[:length]
	}
	return prefix + strings.Repeat("x", length-len(prefix))
}

// TextFields returns text typed fields for the given ids
func TextFields(
	fieldIds ...string,
) []columnmapping.Field {

	return lo.Map(fieldIds, func(fieldId string, _ int) columnmapping.Field {
		return columnmapping.Field{Id: fieldId, Type: "text"}
	})
}

// Records generates count records carrying a value for every
// given field
func Records(
	count int, fields ...columnmapping.Field,
) []columnmapping.Record {

	return lo.Times(count, func(index int) columnmapping.Record {
		record := make(columnmapping.Record, len(fields))
		for _, field := range fields {
			record[field.Id] = index
		}
		return record
	})
}

// NewLoadRequest builds a request for resourceId with text
// typed fields and no records
func NewLoadRequest(
	resourceId string, fieldIds ...string,
) *columnmapping.LoadRequest {

	return &columnmapping.LoadRequest{
		ResourceId: resourceId,
		Fields:     TextFields(fieldIds...),
	}
}
