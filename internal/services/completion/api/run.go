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

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/services/completion/action"
	"github.com/conveyorci/conveyor/internal/util"
	capitypes "github.com/conveyorci/conveyor/services/completion/api/types"
)

type CreateRunHandler struct {
	log zerolog.Logger
	ah  *action.ActionHandler
}

func NewCreateRunHandler(log zerolog.Logger, ah *action.ActionHandler) *CreateRunHandler {
	return &CreateRunHandler{log: log, ah: ah}
}

func (h *CreateRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.do(r)
	if util.HTTPError(w, err) {
		h.log.Err(err).Send()
		return
	}

	if err := util.HTTPResponse(w, http.StatusCreated, res); err != nil {
		h.log.Err(err).Send()
	}
}

func (h *CreateRunHandler) do(r *http.Request) (*capitypes.RunResponse, error) {
	ctx := r.Context()

	var req capitypes.CreateRunRequest
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		return nil, util.NewAPIError(util.ErrBadRequest, errors.Wrapf(err, "failed to decode request body"))
	}

	run, err := h.ah.CreateRun(ctx, &action.CreateRunRequest{
		UpdateSetID:          req.UpdateSetID,
		UpdateSetName:        req.UpdateSetName,
		UpdateSetDescription: req.UpdateSetDescription,
		CommitID:             req.CommitID,
		Config:               req.Config,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return runResponse(run), nil
}

type RunHandler struct {
	log zerolog.Logger
	ah  *action.ActionHandler
}

func NewRunHandler(log zerolog.Logger, ah *action.ActionHandler) *RunHandler {
	return &RunHandler{log: log, ah: ah}
}

func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.do(r)
	if util.HTTPError(w, err) {
		h.log.Err(err).Send()
		return
	}

	if err := util.HTTPResponse(w, http.StatusOK, res); err != nil {
		h.log.Err(err).Send()
	}
}

func (h *RunHandler) do(r *http.Request) (*capitypes.RunResponse, error) {
	ctx := r.Context()

	vars := mux.Vars(r)
	runID := vars["runid"]

	run, err := h.ah.GetRun(ctx, runID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return runResponse(run), nil
}

type RunDeployJobsHandler struct {
	log zerolog.Logger
	ah  *action.ActionHandler
}

func NewRunDeployJobsHandler(log zerolog.Logger, ah *action.ActionHandler) *RunDeployJobsHandler {
	return &RunDeployJobsHandler{log: log, ah: ah}
}

func (h *RunDeployJobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.do(r)
	if util.HTTPError(w, err) {
		h.log.Err(err).Send()
		return
	}

	if err := util.HTTPResponse(w, http.StatusOK, res); err != nil {
		h.log.Err(err).Send()
	}
}

func (h *RunDeployJobsHandler) do(r *http.Request) ([]*capitypes.DeployJobResponse, error) {
	ctx := r.Context()

	vars := mux.Vars(r)
	runID := vars["runid"]

	deployJobs, err := h.ah.GetRunDeployJobs(ctx, runID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	res := make([]*capitypes.DeployJobResponse, len(deployJobs))
	for i, deployJob := range deployJobs {
		res[i] = deployJobResponse(deployJob)
	}

	return res, nil
}
