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
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/sorintlab/errors"
)

// ProgressPhase reports how far a build has progressed to external
// observers watching the source platform.
type ProgressPhase string

const (
	ProgressPhaseFailed            ProgressPhase = "FAILED"
	ProgressPhaseCodeReviewPending ProgressPhase = "CODE_REVIEW_PENDING"
	ProgressPhaseComplete          ProgressPhase = "COMPLETE"
)

// ChatNotifier posts human readable build messages to a chat system.
// Implementations are best-effort, callers log and continue on error.
type ChatNotifier interface {
	BuildFailed(ctx context.Context, message string) error
	BuildComplete(ctx context.Context, message string) error
}

// ProgressReporter pushes the build phase back to the source platform.
type ProgressReporter interface {
	SetProgress(ctx context.Context, applicationName, updateSetName string, phase ProgressPhase) error
}

// Mailer sends build related emails.
type Mailer interface {
	OnBuildFailure(ctx context.Context, recipient string, data BuildFailureData) error
}

// BuildFailureData carries the fields rendered in the build failure email.
type BuildFailureData struct {
	Sequence            uint64
	SourceUpdateSetName string
	SourceUpdateSetURL  string
	DocURL              string
}

const signatureSHA256Key = "X-Conveyor-SHA256Signature"

// postJSON sends a json payload to a webhook destination, signing the body
// with hmac sha256 when a secret is configured.
func postJSON(ctx context.Context, client *http.Client, destURL, secret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", destURL, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	if secret != "" {
		h := hmac.New(sha256.New, []byte(secret))
		if _, err := h.Write(body); err != nil {
			return errors.WithStack(err)
		}
		req.Header.Set(signatureSHA256Key, hex.EncodeToString(h.Sum(nil)))
	}

	res, err := client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errors.Errorf("webhook destination replied with status %d", res.StatusCode)
	}

	return nil
}
