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

package catalog

import (
	"context"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
)

// ResourceCatalog is the host catalog keeping the metadata of
// data resources. Mapping tables are registered as resources
// of their own.
type ResourceCatalog interface {
	// ResourceShow fetches the metadata of the given resource
	ResourceShow(
		ctx context.Context, resourceId string,
	) (*columnmapping.ResourceDescriptor, error)
	// ResourceCreate registers a new resource and returns its
	// metadata including the assigned id
	ResourceCreate(
		ctx context.Context, descriptor columnmapping.ResourceDescriptor,
	) (*columnmapping.ResourceDescriptor, error)
}
