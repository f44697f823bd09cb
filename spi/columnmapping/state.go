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

// State is the reconciliation state of a resource's
// persisted mapping table.
type State int

const (
	// NoMapping means no mapping table exists for the resource
	NoMapping State = iota
	// MappingCurrent means the mapping table matches the field set
	MappingCurrent
	// MappingStale means the mapping table diverged from the field set
	MappingStale
)

func (s State) String() string {
	switch s {
	case NoMapping:
		return "NO_MAPPING"
	case MappingCurrent:
		return "MAPPING_CURRENT"
	case MappingStale:
		return "MAPPING_STALE"
	}
	return "UNKNOWN"
}
