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
	"context"
	"github.com/go-errors/errors"
	"github.com/hashicorp/go-uuid"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"sync"
)

// MemoryCatalog is an in-memory catalog.ResourceCatalog
type MemoryCatalog struct {
	mutex      sync.Mutex
	resources  map[string]columnmapping.ResourceDescriptor
	created    []columnmapping.ResourceDescriptor
	showCalls  int
	createFail error
}

func NewMemoryCatalog(
	resources ...columnmapping.ResourceDescriptor,
) *MemoryCatalog {

	c := &MemoryCatalog{
		resources: make(map[string]columnmapping.ResourceDescriptor),
	}
	for _, resource := range resources {
		c.resources[resource.Id] = resource
	}
	return c
}

func (c *MemoryCatalog) ResourceShow(
	_ context.Context, resourceId string,
) (*columnmapping.ResourceDescriptor, error) {

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.showCalls++
	if resource, present := c.resources[resourceId]; present {
		return &resource, nil
	}
	return nil, errors.Errorf("resource '%s' not found", resourceId)
}

func (c *MemoryCatalog) ResourceCreate(
	_ context.Context, descriptor columnmapping.ResourceDescriptor,
) (*columnmapping.ResourceDescriptor, error) {

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.createFail != nil {
		return nil, c.createFail
	}

	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	descriptor.Id = id
	c.resources[id] = descriptor
	c.created = append(c.created, descriptor)
	return &descriptor, nil
}

// FailCreate makes every following ResourceCreate fail with err
func (c *MemoryCatalog) FailCreate(
	err error,
) {

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.createFail = err
}

// Created returns all resources registered through ResourceCreate
func (c *MemoryCatalog) Created() []columnmapping.ResourceDescriptor {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append(make([]columnmapping.ResourceDescriptor, 0, len(c.created)), c.created...)
}

func (c *MemoryCatalog) ShowCalls() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.showCalls
}
