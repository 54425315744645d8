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

type progressMessage struct {
	Application string `json:"application"`
	UpdateSet   string `json:"update_set"`
	Phase       string `json:"phase"`
}

// WebhookProgressReporter reports the build phase to the source platform
// over a webhook endpoint.
type WebhookProgressReporter struct {
	log        zerolog.Logger
	webhookURL string
	secret     string

	client *http.Client
}

func NewWebhookProgressReporter(log zerolog.Logger, webhookURL, secret string) *WebhookProgressReporter {
	return &WebhookProgressReporter{
		log:        log,
		webhookURL: webhookURL,
		secret:     secret,
		client:     &http.Client{},
	}
}

func (r *WebhookProgressReporter) SetProgress(ctx context.Context, applicationName, updateSetName string, phase ProgressPhase) error {
	body, err := json.Marshal(&progressMessage{Application: applicationName, UpdateSet: updateSetName, Phase: string(phase)})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := postJSON(ctx, r.client, r.webhookURL, r.secret, body); err != nil {
		return errors.Wrapf(err, "failed to report progress %q", phase)
	}

	return nil
}
