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

package ckan

import (
	"context"
	"github.com/goccy/go-json"
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordedCall struct {
	path          string
	authorization string
	payload       map[string]any
}

func newTestServer(
	t *testing.T, status int, response string, calls *[]recordedCall,
) *httptest.Server {

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		payload := make(map[string]any)
		require.NoError(t, json.Unmarshal(data, &payload))
		*calls = append(*calls, recordedCall{
			path:          r.URL.Path,
			authorization: r.Header.Get("Authorization"),
			payload:       payload,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestCkanCatalog_ResourceShow(
	t *testing.T,
) {

	calls := make([]recordedCall, 0)
	server := newTestServer(t, http.StatusOK,
		`{"success": true, "result": {"id": "res-1", "name": "measurements", "package_id": "pkg-1", "description": "d"}}`,
		&calls,
	)
	defer server.Close()

	ckan, err := NewCkanCatalog(server.URL+"/", "secret", time.Second)
	require.NoError(t, err)

	resource, err := ckan.ResourceShow(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, "measurements", resource.Name)
	assert.Equal(t, "pkg-1", resource.PackageId)

	require.Len(t, calls, 1)
	assert.Equal(t, "/api/3/action/resource_show", calls[0].path)
	assert.Equal(t, "secret", calls[0].authorization)
	assert.Equal(t, "res-1", calls[0].payload["id"])
}

func TestCkanCatalog_ResourceCreate(
	t *testing.T,
) {

	calls := make([]recordedCall, 0)
	server := newTestServer(t, http.StatusOK,
		`{"success": true, "result": {"id": "new-id", "name": "measurements_mapping", "package_id": "pkg-1"}}`,
		&calls,
	)
	defer server.Close()

	ckan, err := NewCkanCatalog(server.URL, "", time.Second)
	require.NoError(t, err)

	resource, err := ckan.ResourceCreate(context.Background(), columnmapping.ResourceDescriptor{
		Name:      "measurements_mapping",
		PackageId: "pkg-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", resource.Id)

	require.Len(t, calls, 1)
	assert.Equal(t, "/api/3/action/resource_create", calls[0].path)
	assert.Empty(t, calls[0].authorization)
	assert.Equal(t, "measurements_mapping", calls[0].payload["name"])
	assert.Equal(t, "pkg-1", calls[0].payload["package_id"])
	assert.NotContains(t, calls[0].payload, "id")
}

func TestCkanCatalog_Action_Error(
	t *testing.T,
) {

	calls := make([]recordedCall, 0)
	server := newTestServer(t, http.StatusForbidden,
		`{"success": false, "error": {"__type": "Authorization Error", "message": "Access denied"}}`,
		&calls,
	)
	defer server.Close()

	ckan, err := NewCkanCatalog(server.URL, "wrong", time.Second)
	require.NoError(t, err)

	_, err = ckan.ResourceShow(context.Background(), "res-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access denied")
	assert.Contains(t, err.Error(), "403")
}

func TestCkanCatalog_Invalid_Response(
	t *testing.T,
) {

	calls := make([]recordedCall, 0)
	server := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, &calls)
	defer server.Close()

	ckan, err := NewCkanCatalog(server.URL, "", time.Second)
	require.NoError(t, err)

	_, err = ckan.ResourceShow(context.Background(), "res-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCkanCatalog_Registered(
	t *testing.T,
) {

	c := &config.Config{
		Catalog: config.CatalogConfig{
			Type: config.CkanCatalog,
			Ckan: config.CkanConfig{Url: "http://localhost:5000"},
		},
	}
	ckan, err := catalog.NewCatalog(config.CkanCatalog, c)
	require.NoError(t, err)
	assert.NotNil(t, ckan)

	_, err = catalog.NewCatalog(config.CkanCatalog, &config.Config{})
	assert.Error(t, err)
}
