// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"
)

type chatMessage struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// WebhookChatNotifier delivers chat messages to a single incoming webhook
// endpoint (slack compatible).
type WebhookChatNotifier struct {
	log        zerolog.Logger
	webhookURL string
	secret     string

	client *http.Client
}

func NewWebhookChatNotifier(log zerolog.Logger, webhookURL, secret string) *WebhookChatNotifier {
	return &WebhookChatNotifier{
		log:        log,
		webhookURL: webhookURL,
		secret:     secret,
		client:     &http.Client{},
	}
}

func (c *WebhookChatNotifier) send(ctx context.Context, event, text string) error {
	body, err := json.Marshal(&chatMessage{Event: event, Text: text})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := postJSON(ctx, c.client, c.webhookURL, c.secret, body); err != nil {
		return errors.Wrapf(err, "failed to send chat message")
	}

	return nil
}

func (c *WebhookChatNotifier) BuildFailed(ctx context.Context, message string) error {
	return c.send(ctx, "build.failed", message)
}

func (c *WebhookChatNotifier) BuildComplete(ctx context.Context, message string) error {
	return c.send(ctx, "build.complete", message)
}
