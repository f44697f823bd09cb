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

package none

import (
	"context"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/config"
)

func init() {
	catalog.RegisterCatalog(config.NoneCatalog, newNoneCatalog)
}

// noneCatalog is used when no host catalog is available. Resources
// are named after their ids and registrations are only logged.
type noneCatalog struct {
	logger *logging.Logger
}

func newNoneCatalog(
	_ *config.Config,
) (catalog.ResourceCatalog, error) {

	return NewNoneCatalog()
}

func NewNoneCatalog() (catalog.ResourceCatalog, error) {
	logger, err := logging.NewLogger("NoneCatalog")
	if err != nil {
		return nil, err
	}
	return &noneCatalog{
		logger: logger,
	}, nil
}

func (n *noneCatalog) ResourceShow(
	_ context.Context, resourceId string,
) (*columnmapping.ResourceDescriptor, error) {

	return &columnmapping.ResourceDescriptor{
		Id:   resourceId,
		Name: resourceId,
	}, nil
}

func (n *noneCatalog) ResourceCreate(
	_ context.Context, descriptor columnmapping.ResourceDescriptor,
) (*columnmapping.ResourceDescriptor, error) {

	n.logger.Debugf("Skipping catalog registration of %s", descriptor.Name)
	descriptor.Id = descriptor.Name
	return &descriptor, nil
}
