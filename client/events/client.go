// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package events publishes artifact lifecycle messages to the message
// bridge, which relays them onto the task-queue exchanges.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/mendersoftware/go-lib-micro/rest_utils"
	"github.com/pkg/errors"

	dconfig "github.com/mendersoftware/taskqueue-artifacts/config"
	"github.com/mendersoftware/taskqueue-artifacts/model"
)

const (
	healthURL      = "/api/v1/health"
	publishURL     = "/api/v1/publish"
	defaultTimeout = 5 * time.Second

	ExchangeArtifactCreated = "artifact-created"
)

// Client is the message bridge client
//
//go:generate ../../utils/mockgen.sh
type Client interface {
	CheckHealth(ctx context.Context) error
	PublishArtifactCreated(ctx context.Context, event *model.ArtifactCreatedEvent) error
}

type message struct {
	MessageID string      `json:"messageId"`
	Exchange  string      `json:"exchange"`
	Routes    []string    `json:"routes,omitempty"`
	Payload   interface{} `json:"payload"`
}

// NewClient returns a new message bridge client
func NewClient() Client {
	eventsBaseURL := config.Config.GetString(dconfig.SettingEventsURL)
	return &client{
		baseURL:    eventsBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

func (c *client) CheckHealth(ctx context.Context) error {
	var apiErr rest_utils.ApiError

	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	req, _ := http.NewRequestWithContext(
		ctx, "GET", c.baseURL+healthURL, nil,
	)

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode >= http.StatusOK && rsp.StatusCode < 300 {
		return nil
	}
	decoder := json.NewDecoder(rsp.Body)
	err = decoder.Decode(&apiErr)
	if err != nil {
		return errors.Errorf("health check HTTP error: %s", rsp.Status)
	}
	return &apiErr
}

func (c *client) PublishArtifactCreated(
	ctx context.Context,
	event *model.ArtifactCreatedEvent,
) error {
	l := log.FromContext(ctx)
	l.Debugf("Publish artifact created: runId=%d, name=%s",
		event.RunID, event.Artifact.Name)

	msg := message{
		MessageID: uuid.NewString(),
		Exchange:  ExchangeArtifactCreated,
		Routes:    event.Routes,
		Payload:   event,
	}
	payload, _ := json.Marshal(msg)
	req, err := http.NewRequestWithContext(ctx,
		"POST", c.baseURL+publishURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to publish event: artifact-created")
	}
	defer rsp.Body.Close()
	if rsp.StatusCode >= 300 {
		body, err := io.ReadAll(rsp.Body)
		if err != nil {
			body = []byte("<failed to read>")
		}
		l.Errorf("publish event failed with status %v, response text: %s",
			rsp.StatusCode, body)
		return errors.New("failed to publish event: artifact-created")
	}
	return nil
}
