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

package action

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/conveyorci/conveyor/internal/deploy"
	"github.com/conveyorci/conveyor/internal/gitprovider"
	"github.com/conveyorci/conveyor/internal/notify"
	"github.com/conveyorci/conveyor/internal/services/completion/db"
	"github.com/conveyorci/conveyor/internal/sqlg/lock"
)

type ActionHandler struct {
	log zerolog.Logger
	d   *db.DB
	lf  lock.LockFactory

	chat     notify.ChatNotifier
	mailer   notify.Mailer
	progress notify.ProgressReporter

	// gitClient may be nil when no git provider is configured. The pull
	// request path requires it, commit status updates are skipped without it.
	gitClient     gitprovider.Client
	statusContext string

	deployer deploy.Deployer

	apiExposedURL string
}

func NewActionHandler(log zerolog.Logger, d *db.DB, lf lock.LockFactory, chat notify.ChatNotifier, mailer notify.Mailer, progress notify.ProgressReporter, gitClient gitprovider.Client, statusContext string, deployer deploy.Deployer, apiExposedURL string) *ActionHandler {
	return &ActionHandler{
		log:           log,
		d:             d,
		lf:            lf,
		chat:          chat,
		mailer:        mailer,
		progress:      progress,
		gitClient:     gitClient,
		statusContext: statusContext,
		deployer:      deployer,
		apiExposedURL: apiExposedURL,
	}
}

// hostLink builds an absolute url on the source host.
func hostLink(hostName, relativePath string) string {
	host := strings.TrimSuffix(hostName, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if !strings.HasPrefix(relativePath, "/") {
		relativePath = "/" + relativePath
	}

	return host + relativePath
}

func updateSetLink(hostName, updateSetID string) string {
	return hostLink(hostName, fmt.Sprintf("/update_set.do?id=%s", updateSetID))
}
