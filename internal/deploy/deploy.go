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

package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"
)

// Deployer executes the deployment of a built commit.
type Deployer interface {
	Deploy(ctx context.Context, commitID string) error
}

type deployRequest struct {
	CommitID string `json:"commitId"`
	Deploy   bool   `json:"deploy"`
}

// HTTPDeployer triggers a deployment by posting the commit to a deployment
// endpoint and waiting for it to accept the request.
type HTTPDeployer struct {
	log         zerolog.Logger
	endpointURL string
	token       string

	client *http.Client
}

func NewHTTPDeployer(log zerolog.Logger, endpointURL, token string) *HTTPDeployer {
	return &HTTPDeployer{
		log:         log,
		endpointURL: endpointURL,
		token:       token,
		client:      &http.Client{},
	}
}

func (d *HTTPDeployer) Deploy(ctx context.Context, commitID string) error {
	body, err := json.Marshal(&deployRequest{CommitID: commitID, Deploy: true})
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.endpointURL, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call deployment endpoint")
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errors.Errorf("deployment endpoint replied with status %d", res.StatusCode)
	}

	d.log.Info().Str("commitID", commitID).Msg("deployment accepted")

	return nil
}
