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
	"strings"
	"unicode"
)

const replacementCharacter = '_'

// SanitizeIdentifier replaces all characters which are illegal
// or risky inside a storage engine identifier with an underscore.
// It doesn't enforce any length limit.
func SanitizeIdentifier(
	identifier string,
) (sanitized string, changed bool) {

	builder := strings.Builder{}
	builder.Grow(len(identifier))
	for _, r := range identifier {
		if isValidCharacter(r) {
			builder.WriteRune(r)
		} else {
			changed = true
			builder.WriteRune(replacementCharacter)
		}
	}
	return builder.String(), changed
}

func isValidCharacter(
	r rune,
) bool {

	if r == unicode.ReplacementChar || unicode.IsSpace(r) || unicode.IsControl(r) {
		return false
	}

	switch r {
	case ',', '"', '\'', '`', ';', '%', '(', ')', '.', '\\', '[', ']':
		return false
	}
	return true
}
