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

package stats

import (
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatsService_Reporter(
	t *testing.T,
) {

	service, err := NewStatsService(&config.Config{})
	require.NoError(t, err)
	require.NoError(t, service.Start())

	reporter := service.NewReporter("mapper")
	reporter.Reconciled("MAPPING_CURRENT", true, 3, time.Millisecond*5)
	reporter.Failed("timeout")
	reporter.Deleted()

	recorder := httptest.NewRecorder()
	service.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)

	metrics := string(body)
	assert.Contains(t, metrics, "mapper_reconciliations")
	assert.Contains(t, metrics, "mapper_rebuilds")
	assert.Contains(t, metrics, "mapper_failures")
	assert.Contains(t, metrics, "mapper_deletions")

	require.NoError(t, service.Stop())
}
