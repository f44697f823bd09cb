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
	"encoding/csv"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"io"
)

const defaultFieldType = "text"

// readCsv reads the header as field ids and every following
// line as a record. All fields are typed as text.
func readCsv(
	reader io.Reader,
) ([]columnmapping.Field, []columnmapping.Record, error) {

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil, errors.Errorf("csv file has no header")
	} else if err != nil {
		return nil, nil, errors.Wrap(err, 0)
	}

	fields := make([]columnmapping.Field, 0, len(header))
	for _, fieldId := range header {
		fields = append(fields, columnmapping.Field{Id: fieldId, Type: defaultFieldType})
	}

	records := make([]columnmapping.Record, 0)
	for {
		line, err := csvReader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, errors.Wrap(err, 0)
		}

		record := make(columnmapping.Record, len(fields))
		for i, value := range line {
			record[header[i]] = value
		}
		records = append(records, record)
	}
	return fields, records, nil
}
