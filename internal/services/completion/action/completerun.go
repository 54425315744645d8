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
	"fmt"
	"time"

	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/gitprovider"
	"github.com/conveyorci/conveyor/internal/notify"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/internal/util"
	"github.com/conveyorci/conveyor/services/completion/types"
)

// Decision is the single downstream action chosen for a completed build.
// Exactly one decision is dispatched per completion event.
type Decision string

const (
	DecisionFail             Decision = "fail"
	DecisionRaisePullRequest Decision = "raise_pull_request"
	DecisionDeploy           Decision = "deploy"
	DecisionSucceed          Decision = "succeed"
)

// routeDecision computes the dispatch decision from the persisted verdict
// and the immutable run config. The branches are mutually exclusive by
// configuration, evaluated in fixed priority order.
func routeDecision(verdict types.Verdict, c *types.RunConfig) Decision {
	if verdict != types.VerdictPass {
		return DecisionFail
	}
	if c.Git.Enabled && c.Git.PullRequestEnabled {
		return DecisionRaisePullRequest
	}
	if c.Deploy.Enabled && c.Deploy.OnBuildPass {
		return DecisionDeploy
	}

	return DecisionSucceed
}

type CompleteRunRequest struct {
	RunID string

	// BuildResults is the per task outcome map from the inbound completion
	// event.
	BuildResults map[string]types.TaskResult
}

type CompleteRunResponse struct {
	Run      *types.Run
	Decision Decision

	// PullRequestAlreadyRaised is true when the pull request path
	// short-circuited because a pull request was already raised for the
	// run's update set.
	PullRequestAlreadyRaised bool

	// DeployJobHandle is set when the decision was deploy.
	DeployJobHandle *types.JobHandle
}

// CompleteRun processes a build completion event: it aggregates the verdict,
// persists it, moves the run to the build completed state and dispatches
// exactly one downstream action. Integration failures (chat, email, pull
// request api, commit status) are logged and don't abort the workflow,
// storage failures do.
func (h *ActionHandler) CompleteRun(ctx context.Context, req *CompleteRunRequest) (*CompleteRunResponse, error) {
	var run *types.Run
	var updateSet *types.UpdateSet

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		run, err = h.d.GetRun(tx, req.RunID)
		if err != nil {
			return errors.WithStack(err)
		}
		if run == nil {
			return util.NewAPIError(util.ErrNotExist, errors.Errorf("run %q doesn't exist", req.RunID))
		}
		if err := run.Config.Validate(); err != nil {
			return errors.Wrapf(err, "run %q has an invalid config", run.ID)
		}

		updateSet, err = h.d.GetUpdateSet(tx, run.UpdateSetID)
		if err != nil {
			return errors.WithStack(err)
		}
		if updateSet == nil {
			return errors.Errorf("update set %q for run %q doesn't exist", run.UpdateSetID, run.ID)
		}

		if run.State.IsTerminal() {
			return nil
		}

		// The verdict, once set, is never overwritten by a redelivered
		// completion event.
		if !run.Verdict.IsSet() {
			if aggregateVerdict(run.Config.Tasks, req.BuildResults) {
				run.Verdict = types.VerdictPass
			} else {
				run.Verdict = types.VerdictFail
			}
		}

		if err := run.ChangeState(types.RunStateBuildCompleted); err != nil {
			return util.NewAPIError(util.ErrBadRequest, errors.WithStack(err))
		}

		return errors.WithStack(h.d.UpdateRun(tx, run))
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	h.log.Debug().Msgf("run: %s", util.Dump(run))

	decision := routeDecision(run.Verdict, &run.Config)

	res := &CompleteRunResponse{Run: run, Decision: decision}

	// A completion event redelivered after the run reached a terminal state
	// performs no side effects.
	if run.State.IsTerminal() {
		h.log.Info().Str("runID", run.ID).Str("state", string(run.State)).Msg("completion event redelivered for a finished run")
		if decision == DecisionRaisePullRequest {
			res.PullRequestAlreadyRaised = updateSet.PullRequestRaised
		}
		return res, nil
	}

	switch decision {
	case DecisionFail:
		if err := h.dispatchFail(ctx, res, updateSet); err != nil {
			return nil, errors.WithStack(err)
		}

	case DecisionRaisePullRequest:
		if err := h.dispatchPullRequest(ctx, res, updateSet); err != nil {
			return nil, errors.WithStack(err)
		}

	case DecisionDeploy:
		if err := h.dispatchDeploy(ctx, res, updateSet); err != nil {
			return nil, errors.WithStack(err)
		}

	case DecisionSucceed:
		if err := h.dispatchSucceed(ctx, res, updateSet); err != nil {
			return nil, errors.WithStack(err)
		}

	default:
		return nil, errors.Errorf("unknown decision %q", decision)
	}

	return res, nil
}

// transitionRun reloads the run inside a fresh transaction and applies the
// state transition. The returned run replaces the caller's stale copy.
func (h *ActionHandler) transitionRun(ctx context.Context, runID string, target types.RunState) (*types.Run, error) {
	var run *types.Run

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		run, err = h.d.GetRun(tx, runID)
		if err != nil {
			return errors.WithStack(err)
		}
		if run == nil {
			return util.NewAPIError(util.ErrNotExist, errors.Errorf("run %q doesn't exist", runID))
		}

		if err := run.ChangeState(target); err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(h.d.UpdateRun(tx, run))
	})

	return run, errors.WithStack(err)
}

func (h *ActionHandler) setCommitStatus(ctx context.Context, run *types.Run, state gitprovider.CommitState, description string) {
	if h.gitClient == nil || !run.Config.Git.Enabled || run.CommitID == "" {
		return
	}

	targetURL := fmt.Sprintf("%s/api/v1alpha/runs/%s", h.apiExposedURL, run.ID)
	if err := h.gitClient.CreateCommitStatus(ctx, run.Config.Git.Repository, run.CommitID, state, targetURL, description, h.statusContext); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to update commit status")
	}
}

func (h *ActionHandler) dispatchFail(ctx context.Context, res *CompleteRunResponse, updateSet *types.UpdateSet) error {
	run := res.Run
	c := &run.Config

	if err := h.progress.SetProgress(ctx, c.Application.Name, updateSet.Name, notify.ProgressPhaseFailed); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to report failed progress")
	}

	message := fmt.Sprintf("*%s › %s › #%d*\nBUILD - Failed.\n\nBuild for <%s|%s> did not pass!\n\n<%s|details>",
		c.Application.Name, updateSet.Name, run.Sequence, c.Application.DocURL, updateSet.Name, c.Application.DocURL)
	if err := h.chat.BuildFailed(ctx, message); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to send build failed chat message")
	}

	run, err := h.transitionRun(ctx, run.ID, types.RunStateBuildFailed)
	if err != nil {
		return errors.WithStack(err)
	}
	res.Run = run

	recipient := fmt.Sprintf("%q <%s>", c.Requestor.FullName, c.Requestor.Email)
	data := notify.BuildFailureData{
		Sequence:            run.Sequence,
		SourceUpdateSetName: updateSet.Name,
		SourceUpdateSetURL:  updateSetLink(c.Host.Name, run.UpdateSetID),
		DocURL:              c.Application.DocURL,
	}
	if err := h.mailer.OnBuildFailure(ctx, recipient, data); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to send build failure email")
	}

	h.setCommitStatus(ctx, run, gitprovider.CommitStateFailed, "build failed")

	return nil
}

func (h *ActionHandler) dispatchPullRequest(ctx context.Context, res *CompleteRunResponse, updateSet *types.UpdateSet) error {
	run := res.Run
	c := &run.Config

	// The check-and-set around the external pull request call is serialized
	// per update set so two concurrent completions can't both raise one.
	l := h.lf.NewLock(fmt.Sprintf("updatesetpr-%s", run.UpdateSetID))
	if err := l.Lock(ctx); err != nil {
		return errors.Wrapf(err, "failed to acquire update set pull request lock")
	}
	defer func() { _ = l.Unlock() }()

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		updateSet, err = h.d.GetUpdateSet(tx, run.UpdateSetID)
		if err != nil {
			return errors.WithStack(err)
		}
		if updateSet == nil {
			return errors.Errorf("update set %q doesn't exist", run.UpdateSetID)
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if updateSet.PullRequestRaised {
		h.log.Warn().Str("runID", run.ID).Str("updateSetID", updateSet.ID).Msg("pull request already raised")
		res.PullRequestAlreadyRaised = true
		return nil
	}

	if err := h.progress.SetProgress(ctx, c.Application.Name, updateSet.Name, notify.ProgressPhaseCodeReviewPending); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to report code review pending progress")
	}

	if h.gitClient == nil {
		h.log.Error().Str("runID", run.ID).Msg("pull request requested but no git provider is configured")
		return nil
	}

	h.log.Info().Str("runID", run.ID).Str("updateSetID", updateSet.ID).Msg("raising pull request")

	title := fmt.Sprintf("%s › %s › #%d (%s)", c.Application.Name, updateSet.Name, run.Sequence, c.Requestor.FullName)
	description := fmt.Sprintf("%s\n\nBuild Results: %s\n\nCompleted-By: %s (%s)\nCompleted-On: %s UTC\n%s",
		updateSet.Description, c.Application.DocURL, c.Requestor.FullName, c.Requestor.UserName,
		updateSet.UpdateTime.UTC().Format(time.DateTime), updateSetLink(c.Host.Name, updateSet.ID))

	pr, err := h.gitClient.CreatePullRequest(ctx, gitprovider.CreatePullRequestOpts{
		Repository:  c.Git.Repository,
		Head:        c.Git.BranchName,
		Base:        c.Git.PullRequestTarget(),
		Title:       title,
		Description: description,
	})
	if err != nil {
		// The flag stays false and the run stays at build completed so a
		// future re-run can retry.
		h.log.Err(err).Str("runID", run.ID).Msg("pull request creation failed")
		return nil
	}

	h.log.Info().Str("runID", run.ID).Int("prNumber", pr.Number).Str("prURL", pr.WebURL).Msg("pull request raised")

	// Persist the raised flag and the run transition atomically, only after
	// the pull request call succeeded.
	err = h.d.Do(ctx, func(tx *sql.Tx) error {
		updateSet, err = h.d.GetUpdateSet(tx, run.UpdateSetID)
		if err != nil {
			return errors.WithStack(err)
		}
		if updateSet == nil {
			return errors.Errorf("update set %q doesn't exist", run.UpdateSetID)
		}
		updateSet.PullRequestRaised = true
		if err := h.d.UpdateUpdateSet(tx, updateSet); err != nil {
			return errors.WithStack(err)
		}

		run, err = h.d.GetRun(tx, run.ID)
		if err != nil {
			return errors.WithStack(err)
		}
		if run == nil {
			return errors.Errorf("run %q doesn't exist", res.Run.ID)
		}
		if err := run.ChangeState(types.RunStatePullRequestRaised); err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(h.d.UpdateRun(tx, run))
	})
	if err != nil {
		return errors.WithStack(err)
	}
	res.Run = run

	return nil
}

func (h *ActionHandler) dispatchDeploy(ctx context.Context, res *CompleteRunResponse, updateSet *types.UpdateSet) error {
	run, err := h.transitionRun(ctx, res.Run.ID, types.RunStateSuccessful)
	if err != nil {
		return errors.WithStack(err)
	}
	res.Run = run

	handle, err := h.submitDeployJob(ctx, run, updateSet)
	if err != nil {
		return errors.WithStack(err)
	}
	res.DeployJobHandle = handle

	h.log.Info().Str("runID", run.ID).Str("jobID", handle.JobID).Str("exclusivityKey", handle.ExclusivityKey).Bool("coalesced", handle.Coalesced).Msg("deployment job submitted")

	h.setCommitStatus(ctx, run, gitprovider.CommitStateSuccess, "build successful")

	return nil
}

// submitDeployJob submits a background deployment job for the run's commit.
// The check for an existing active job with the same exclusivity key and
// the insert happen in one serializable transaction, so a concurrent
// submission for the same commit coalesces instead of creating a second
// active job. Submission is fire and forget, the job is executed by the
// deploy job workers.
func (h *ActionHandler) submitDeployJob(ctx context.Context, run *types.Run, updateSet *types.UpdateSet) (*types.JobHandle, error) {
	exclusivityKey := types.DeployExclusivityKey(run.CommitID)

	var handle *types.JobHandle

	err := h.d.Do(ctx, func(tx *sql.Tx) error {
		cur, err := h.d.GetActiveDeployJobByExclusivityKey(tx, exclusivityKey)
		if err != nil {
			return errors.WithStack(err)
		}
		if cur != nil {
			handle = &types.JobHandle{JobID: cur.ID, ExclusivityKey: exclusivityKey, SubmittedAt: cur.CreationTime, Coalesced: true}
			return nil
		}

		job := types.NewDeployJob(tx)
		job.Name = "deploy"
		job.ExclusivityKey = exclusivityKey
		job.Description = fmt.Sprintf("Deploy %s : %s : %s", run.Config.Application.Name, updateSet.Name, run.CommitID)
		job.Payload = types.DeployPayload{CommitID: run.CommitID, Deploy: true}

		if err := h.d.InsertDeployJob(tx, job); err != nil {
			return errors.WithStack(err)
		}

		handle = &types.JobHandle{JobID: job.ID, ExclusivityKey: exclusivityKey, SubmittedAt: job.CreationTime}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return handle, nil
}

func (h *ActionHandler) dispatchSucceed(ctx context.Context, res *CompleteRunResponse, updateSet *types.UpdateSet) error {
	run := res.Run
	c := &run.Config

	if err := h.progress.SetProgress(ctx, c.Application.Name, updateSet.Name, notify.ProgressPhaseComplete); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to report complete progress")
	}

	run, err := h.transitionRun(ctx, run.ID, types.RunStateSuccessful)
	if err != nil {
		return errors.WithStack(err)
	}
	res.Run = run

	message := fmt.Sprintf("*%s › %s › #%d*\nBUILD - Completed.\n\nBuild successfully completed for Update-Set <%s|%s>\n\n<%s|details>",
		c.Application.Name, updateSet.Name, run.Sequence, updateSetLink(c.Host.Name, updateSet.ID), updateSet.Name, c.Application.DocURL)
	if err := h.chat.BuildComplete(ctx, message); err != nil {
		h.log.Err(err).Str("runID", run.ID).Msg("failed to send build complete chat message")
	}

	h.setCommitStatus(ctx, run, gitprovider.CommitStateSuccess, "build successful")

	return nil
}
