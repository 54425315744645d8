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
	"time"

	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/internal/util"
	"github.com/conveyorci/conveyor/services/completion/types"
)

const deployJobsFetchLimit = 10

// ExecuteDeployJobs drains queued deploy jobs in submission order and
// executes them through the deployer. It's called by the deploy jobs
// handler loop while holding the loop lock, so only one drainer runs at a
// time. A deployer failure marks the job failed and doesn't stop the drain.
func (h *ActionHandler) ExecuteDeployJobs(ctx context.Context) error {
	afterSequence := uint64(0)

	for {
		var deployJobs []*types.DeployJob

		err := h.d.Do(ctx, func(tx *sql.Tx) error {
			var err error
			deployJobs, err = h.d.GetQueuedDeployJobsAfterSequence(tx, afterSequence, deployJobsFetchLimit)
			return errors.WithStack(err)
		})
		if err != nil {
			return errors.WithStack(err)
		}

		for _, deployJob := range deployJobs {
			if err := h.executeDeployJob(ctx, deployJob.ID); err != nil {
				return errors.WithStack(err)
			}

			afterSequence = deployJob.Sequence
		}

		if len(deployJobs) < deployJobsFetchLimit {
			return nil
		}
	}
}

func (h *ActionHandler) executeDeployJob(ctx context.Context, deployJobID string) error {
	var deployJob *types.DeployJob

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJob, err = h.d.GetDeployJob(tx, deployJobID)
		if err != nil {
			return errors.WithStack(err)
		}
		if deployJob == nil {
			return util.NewAPIError(util.ErrNotExist, errors.Errorf("deploy job %q doesn't exist", deployJobID))
		}
		if deployJob.Status != types.DeployJobStatusQueued {
			return nil
		}

		deployJob.Status = types.DeployJobStatusRunning
		return errors.WithStack(h.d.UpdateDeployJob(tx, deployJob))
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if deployJob.Status != types.DeployJobStatusRunning {
		return nil
	}

	h.log.Info().Str("jobID", deployJob.ID).Str("commitID", deployJob.Payload.CommitID).Msg("executing deploy job")

	deployErr := h.deployer.Deploy(ctx, deployJob.Payload.CommitID)
	if deployErr != nil {
		h.log.Err(deployErr).Str("jobID", deployJob.ID).Msg("deploy job failed")
	}

	err = h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJob, err = h.d.GetDeployJob(tx, deployJobID)
		if err != nil {
			return errors.WithStack(err)
		}
		if deployJob == nil {
			return util.NewAPIError(util.ErrNotExist, errors.Errorf("deploy job %q doesn't exist", deployJobID))
		}

		if deployErr != nil {
			deployJob.Status = types.DeployJobStatusFailed
		} else {
			deployJob.Status = types.DeployJobStatusDone
		}
		deployJob.FinishedAt = util.Ptr(time.Now())

		return errors.WithStack(h.d.UpdateDeployJob(tx, deployJob))
	})

	return errors.WithStack(err)
}
