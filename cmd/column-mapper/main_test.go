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

package main

import (
	"bytes"
	"github.com/gookit/color"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestReadCsv(
	t *testing.T,
) {

	longName := strings.Repeat("measurement ", 7)
	input := "id,\"" + longName + "\"\n1,20.5\n2,21.0\n"

	fields, records, err := readCsv(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []columnmapping.Field{
		{Id: "id", Type: "text"},
		{Id: longName, Type: "text"},
	}, fields)
	assert.Equal(t, []columnmapping.Record{
		{"id": "1", longName: "20.5"},
		{"id": "2", longName: "21.0"},
	}, records)
}

func TestReadCsv_Empty(
	t *testing.T,
) {

	_, _, err := readCsv(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCsv_Inconsistent_Columns(
	t *testing.T,
) {

	_, _, err := readCsv(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestPrintEntries(
	t *testing.T,
) {

	color.Enable = false
	defer func() {
		color.Enable = true
	}()

	buffer := &bytes.Buffer{}
	printEntries(buffer, "res", []columnmapping.MappingEntry{
		{OriginalName: "long", MappedName: "short_1", ColumnType: "text"},
	})
	assert.Equal(t, "Mapping of resource res (res_mapping):\n  long => short_1 (text)\n", buffer.String())

	buffer.Reset()
	printEntries(buffer, "res", nil)
	assert.Equal(t, "Resource res has no mapping\n", buffer.String())
}
