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
	"context"

	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/internal/util"
	"github.com/conveyorci/conveyor/services/completion/types"
)

type CreateRunRequest struct {
	// UpdateSetID references an existing update set. When empty a new
	// update set is created from UpdateSetName/UpdateSetDescription.
	UpdateSetID          string
	UpdateSetName        string
	UpdateSetDescription string

	CommitID string

	Config types.RunConfig
}

// CreateRun registers a started build run. It stands in for the prior
// pipeline stage that schedules builds, so a created run is immediately in
// the running state, ready for its completion event.
func (h *ActionHandler) CreateRun(ctx context.Context, req *CreateRunRequest) (*types.Run, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, util.NewAPIError(util.ErrBadRequest, errors.Wrapf(err, "invalid run config"))
	}
	if req.UpdateSetID == "" && req.UpdateSetName == "" {
		return nil, util.NewAPIError(util.ErrBadRequest, errors.Errorf("one of update set id or update set name is required"))
	}

	var run *types.Run

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		updateSet := &types.UpdateSet{}
		if req.UpdateSetID != "" {
			var err error
			updateSet, err = h.d.GetUpdateSet(tx, req.UpdateSetID)
			if err != nil {
				return errors.WithStack(err)
			}
			if updateSet == nil {
				return util.NewAPIError(util.ErrNotExist, errors.Errorf("update set %q doesn't exist", req.UpdateSetID))
			}
		} else {
			updateSet = types.NewUpdateSet(tx)
			updateSet.Name = req.UpdateSetName
			updateSet.Description = req.UpdateSetDescription
			if err := h.d.InsertUpdateSet(tx, updateSet); err != nil {
				return errors.WithStack(err)
			}
		}

		prevRuns, err := h.d.GetRunsByUpdateSetID(tx, updateSet.ID)
		if err != nil {
			return errors.WithStack(err)
		}

		run = types.NewRun(tx)
		run.Sequence = uint64(len(prevRuns)) + 1
		run.UpdateSetID = updateSet.ID
		run.CommitID = req.CommitID
		run.Config = req.Config

		// Advance through the earlier pipeline stages owned by the caller.
		if err := run.ChangeState(types.RunStateQueued); err != nil {
			return errors.WithStack(err)
		}
		if err := run.ChangeState(types.RunStateRunning); err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(h.d.InsertRun(tx, run))
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return run, nil
}

func (h *ActionHandler) GetRun(ctx context.Context, runID string) (*types.Run, error) {
	var run *types.Run

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		run, err = h.d.GetRun(tx, runID)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if run == nil {
		return nil, util.NewAPIError(util.ErrNotExist, errors.Errorf("run %q doesn't exist", runID))
	}

	return run, nil
}

// GetRunDeployJobs returns the deploy jobs submitted for the run's commit,
// in submission order.
func (h *ActionHandler) GetRunDeployJobs(ctx context.Context, runID string) ([]*types.DeployJob, error) {
	var deployJobs []*types.DeployJob

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		run, err := h.d.GetRun(tx, runID)
		if err != nil {
			return errors.WithStack(err)
		}
		if run == nil {
			return util.NewAPIError(util.ErrNotExist, errors.Errorf("run %q doesn't exist", runID))
		}

		deployJobs, err = h.d.GetDeployJobsByExclusivityKey(tx, types.DeployExclusivityKey(run.CommitID))
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return deployJobs, nil
}
