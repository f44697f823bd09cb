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
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNoneCatalog(
	t *testing.T,
) {

	none, err := catalog.NewCatalog(config.NoneCatalog, &config.Config{})
	require.NoError(t, err)

	resource, err := none.ResourceShow(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", resource.Name)

	created, err := none.ResourceCreate(context.Background(), columnmapping.ResourceDescriptor{
		Name: "res-1_mapping",
	})
	require.NoError(t, err)
	assert.Equal(t, "res-1_mapping", created.Id)
}
