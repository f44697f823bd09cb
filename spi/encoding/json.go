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

package encoding

import (
	"github.com/goccy/go-json"
	"io"
)

type JsonEncoder struct {
	marshallerFunction func(v any) ([]byte, error)
	indent             string
}

// NewJsonEncoder creates an encoder, with customReflection the
// encoder skips HTML escaping of strings
func NewJsonEncoder(
	customReflection bool,
) *JsonEncoder {

	marshallerFunction := json.Marshal
	if customReflection {
		marshallerFunction = json.MarshalNoEscape
	}

	return &JsonEncoder{
		marshallerFunction: marshallerFunction,
	}
}

// NewIndentingJsonEncoder creates an encoder producing human
// readable output
func NewIndentingJsonEncoder(
	indent string,
) *JsonEncoder {

	return &JsonEncoder{
		marshallerFunction: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", indent)
		},
		indent: indent,
	}
}

func (j *JsonEncoder) Marshal(
	value any,
) ([]byte, error) {

	return j.marshallerFunction(value)
}

// Encode writes the encoded value followed by a newline
func (j *JsonEncoder) Encode(
	writer io.Writer, value any,
) error {

	data, err := j.Marshal(value)
	if err != nil {
		return err
	}
	if _, err := writer.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

type JsonDecoder struct {
	unmarshallerFunction func(data []byte, v any) error
}

func NewJsonDecoder(
	customReflection bool,
) *JsonDecoder {

	unmarshallerFunction := json.Unmarshal
	if customReflection {
		unmarshallerFunction = func(data []byte, v any) error {
			return json.UnmarshalNoEscape(data, v)
		}
	}

	return &JsonDecoder{
		unmarshallerFunction: unmarshallerFunction,
	}
}

func (j *JsonDecoder) Unmarshal(
	data []byte, v any,
) error {

	return j.unmarshallerFunction(data, v)
}
