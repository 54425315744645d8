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

package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/services/completion/action"
	"github.com/conveyorci/conveyor/internal/util"
	capitypes "github.com/conveyorci/conveyor/services/completion/api/types"
	"github.com/conveyorci/conveyor/services/completion/types"
)

type BuildCompleteHandler struct {
	log zerolog.Logger
	ah  *action.ActionHandler
}

func NewBuildCompleteHandler(log zerolog.Logger, ah *action.ActionHandler) *BuildCompleteHandler {
	return &BuildCompleteHandler{log: log, ah: ah}
}

func (h *BuildCompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.do(r)
	if util.HTTPError(w, err) {
		h.log.Err(err).Send()
		return
	}

	if err := util.HTTPResponse(w, http.StatusOK, res); err != nil {
		h.log.Err(err).Send()
	}
}

func (h *BuildCompleteHandler) do(r *http.Request) (*capitypes.CompleteBuildResponse, error) {
	ctx := r.Context()

	var req capitypes.CompleteBuildRequest
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		return nil, util.NewAPIError(util.ErrBadRequest, errors.Wrapf(err, "failed to decode request body"))
	}
	if req.RunID == "" {
		return nil, util.NewAPIError(util.ErrBadRequest, errors.Errorf("empty run id"))
	}

	buildResults := make(map[string]types.TaskResult, len(req.BuildResult))
	for name, result := range req.BuildResult {
		buildResults[name] = types.TaskResult{TestPass: result.TestPass}
	}

	ares, err := h.ah.CompleteRun(ctx, &action.CompleteRunRequest{RunID: req.RunID, BuildResults: buildResults})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	res := &capitypes.CompleteBuildResponse{
		Run:                      runResponse(ares.Run),
		Decision:                 string(ares.Decision),
		PullRequestAlreadyRaised: ares.PullRequestAlreadyRaised,
	}
	if ares.DeployJobHandle != nil {
		res.DeployJob = &capitypes.DeployJobHandleResponse{
			ID:             ares.DeployJobHandle.JobID,
			ExclusivityKey: ares.DeployJobHandle.ExclusivityKey,
			SubmittedAt:    ares.DeployJobHandle.SubmittedAt,
			Coalesced:      ares.DeployJobHandle.Coalesced,
		}
	}

	return res, nil
}
