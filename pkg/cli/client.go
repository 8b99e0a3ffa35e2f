/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carverauto/punchsync/pkg/models"
)

var errUnexpectedStatus = errors.New("unexpected API response")

// HTTPBackend drives a running punchsync through its HTTP API.
type HTTPBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Backend = (*HTTPBackend)(nil)

func NewHTTPBackend(baseURL, apiKey string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (c *HTTPBackend) SyncDevice(ctx context.Context, ip string, port int) (*models.SyncResult, error) {
	var result models.SyncResult

	err := c.do(ctx, http.MethodPost, "/api/v1/devices/sync", models.DeviceRequest{IP: ip, Port: port}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *HTTPBackend) SyncAll(ctx context.Context) (*models.FleetResult, error) {
	var result models.FleetResult

	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// TestConnection uses the server's configured probe timeout.
func (c *HTTPBackend) TestConnection(ctx context.Context, ip string, port int, _ time.Duration) (models.ProbeResult, error) {
	var result models.ProbeResult

	err := c.do(ctx, http.MethodPost, "/api/v1/devices/test", models.DeviceRequest{IP: ip, Port: port}, &result)

	return result, err
}

func (c *HTTPBackend) DeviceStates(ctx context.Context) ([]*models.DeviceSyncState, error) {
	var states []*models.DeviceSyncState

	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/state", nil, &states); err != nil {
		return nil, err
	}

	return states, nil
}

func (*HTTPBackend) RegisterDevice(context.Context, models.DeviceEndpoint) error {
	return NewExitError(ExitCommandError, "device registration "+errRemoteUnsupported.Error())
}

func (*HTTPBackend) RegisterEmployee(context.Context, string, string, string) error {
	return NewExitError(ExitCommandError, "employee registration "+errRemoteUnsupported.Error())
}

func (c *HTTPBackend) Close() {
	c.client.CloseIdleConnections()
}

func (c *HTTPBackend) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader = http.NoBody

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --server URL", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return WrapExitError(ExitCommandError, "request to punchsync failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = resp.Status
		}

		return WrapExitError(ExitCommandError, fmt.Sprintf("%s %s", method, path),
			fmt.Errorf("%w: %d %s", errUnexpectedStatus, resp.StatusCode, apiErr.Message))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapExitError(ExitCommandError, "failed to decode API response", err)
	}

	return nil
}
