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
	"bytes"
	"context"
	"fmt"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/catalog"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/encoding"
	"io"
	"net/http"
	"strings"
	"time"
)

const actionPath = "/api/3/action/"

func init() {
	catalog.RegisterCatalog(config.CkanCatalog, newCkanCatalog)
}

type actionResponse struct {
	Success bool                              `json:"success"`
	Result  *columnmapping.ResourceDescriptor `json:"result"`
	Error   *actionError                      `json:"error"`
}

type actionError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// ckanCatalog talks to the action API of a CKAN instance
type ckanCatalog struct {
	logger  *logging.Logger
	client  *http.Client
	encoder *encoding.JsonEncoder
	decoder *encoding.JsonDecoder
	baseUrl string
	apiKey  string
}

func newCkanCatalog(
	c *config.Config,
) (catalog.ResourceCatalog, error) {

	baseUrl := config.GetOrDefault(c, config.PropertyCatalogCkanUrl, "")
	if baseUrl == "" {
		return nil, errors.Errorf("ckan catalog requires %s", config.PropertyCatalogCkanUrl)
	}

	timeout := config.GetOrDefault(c, config.PropertyCatalogCkanTimeout, config.DefaultCkanTimeoutSeconds)
	return NewCkanCatalog(
		baseUrl, config.GetOrDefault(c, config.PropertyCatalogCkanApiKey, ""), time.Second*time.Duration(timeout),
	)
}

func NewCkanCatalog(
	baseUrl, apiKey string, timeout time.Duration,
) (catalog.ResourceCatalog, error) {

	logger, err := logging.NewLogger("CkanCatalog")
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &ckanCatalog{
		logger:  logger,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		encoder: encoding.NewJsonEncoder(true),
		decoder: encoding.NewJsonDecoder(true),
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		apiKey:  apiKey,
	}, nil
}

func (c *ckanCatalog) ResourceShow(
	ctx context.Context, resourceId string,
) (*columnmapping.ResourceDescriptor, error) {

	return c.call(ctx, "resource_show", map[string]string{"id": resourceId})
}

func (c *ckanCatalog) ResourceCreate(
	ctx context.Context, descriptor columnmapping.ResourceDescriptor,
) (*columnmapping.ResourceDescriptor, error) {

	return c.call(ctx, "resource_create", descriptor)
}

func (c *ckanCatalog) call(
	ctx context.Context, action string, payload any,
) (*columnmapping.ResourceDescriptor, error) {

	body, err := c.encoder.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+actionPath+action, bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	c.logger.Debugf("Calling catalog action %s", action)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	response := actionResponse{}
	if err := c.decoder.Unmarshal(data, &response); err != nil {
		return nil, errors.Errorf(
			"catalog action %s failed with status %d: %s", action, resp.StatusCode, abbreviate(data),
		)
	}

	if !response.Success || resp.StatusCode >= http.StatusBadRequest {
		if response.Error != nil {
			return nil, errors.Errorf(
				"catalog action %s failed with status %d: %s (%s)",
				action, resp.StatusCode, response.Error.Message, response.Error.Type,
			)
		}
		return nil, errors.Errorf("catalog action %s failed with status %d", action, resp.StatusCode)
	}

	if response.Result == nil {
		return nil, errors.Errorf("catalog action %s returned no result", action)
	}
	return response.Result, nil
}

func abbreviate(
	data []byte,
) string {

	if len(data) > 200 {
		return fmt.Sprintf("%s...", data[:200])
	}
	return string(data)
}
