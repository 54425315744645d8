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
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sorintlab/errors"
	"golang.org/x/sync/errgroup"
	"gotest.tools/v3/assert"

	"github.com/conveyorci/conveyor/internal/gitprovider"
	"github.com/conveyorci/conveyor/internal/notify"
	"github.com/conveyorci/conveyor/internal/services/completion/db"
	"github.com/conveyorci/conveyor/internal/sqlg"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/internal/testutil"
	"github.com/conveyorci/conveyor/internal/util"
	"github.com/conveyorci/conveyor/services/completion/types"
)

type stubChatNotifier struct {
	mu       sync.Mutex
	failed   []string
	complete []string
	err      error
}

func (s *stubChatNotifier) BuildFailed(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed = append(s.failed, message)
	return s.err
}

func (s *stubChatNotifier) BuildComplete(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.complete = append(s.complete, message)
	return s.err
}

type stubMailer struct {
	mu         sync.Mutex
	recipients []string
	datas      []notify.BuildFailureData
	err        error
}

func (s *stubMailer) OnBuildFailure(ctx context.Context, recipient string, data notify.BuildFailureData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipients = append(s.recipients, recipient)
	s.datas = append(s.datas, data)
	return s.err
}

type stubProgressReporter struct {
	mu     sync.Mutex
	phases []notify.ProgressPhase
}

func (s *stubProgressReporter) SetProgress(ctx context.Context, applicationName, updateSetName string, phase notify.ProgressPhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phases = append(s.phases, phase)
	return nil
}

type stubGitClient struct {
	mu           sync.Mutex
	pullRequests []gitprovider.CreatePullRequestOpts
	statuses     []gitprovider.CommitState
	prErr        error
}

func (s *stubGitClient) CreatePullRequest(ctx context.Context, opts gitprovider.CreatePullRequestOpts) (*gitprovider.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prErr != nil {
		return nil, s.prErr
	}

	s.pullRequests = append(s.pullRequests, opts)
	return &gitprovider.PullRequest{Number: len(s.pullRequests), WebURL: "https://git.example.com/pr"}, nil
}

func (s *stubGitClient) CreateCommitStatus(ctx context.Context, repository, commitSHA string, state gitprovider.CommitState, targetURL, description, statusContext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses = append(s.statuses, state)
	return nil
}

type stubDeployer struct {
	mu      sync.Mutex
	commits []string
	err     error
}

func (s *stubDeployer) Deploy(ctx context.Context, commitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commits = append(s.commits, commitID)
	return s.err
}

type testStubs struct {
	chat     *stubChatNotifier
	mailer   *stubMailer
	progress *stubProgressReporter
	git      *stubGitClient
	deployer *stubDeployer
}

func setupActionHandler(ctx context.Context, t *testing.T) (*ActionHandler, *db.DB, *testStubs) {
	log := testutil.NewLogger(t)
	dir := t.TempDir()

	sdb, lf, _ := testutil.CreateDB(t, log, ctx, dir)

	d, err := db.NewDB(log, sdb)
	testutil.NilError(t, err)

	err = d.Setup(ctx)
	testutil.NilError(t, err)

	stubs := &testStubs{
		chat:     &stubChatNotifier{},
		mailer:   &stubMailer{},
		progress: &stubProgressReporter{},
		git:      &stubGitClient{},
		deployer: &stubDeployer{},
	}

	ah := NewActionHandler(log, d, lf, stubs.chat, stubs.mailer, stubs.progress, stubs.git, "conveyor", stubs.deployer, "https://conveyor.example.com")

	return ah, d, stubs
}

func baseRunConfig() types.RunConfig {
	return types.RunConfig{
		Application: types.ApplicationConfig{Name: "myapp", DocURL: "https://docs.example.com/myapp"},
		Host:        types.HostConfig{Name: "source.example.com"},
		Tasks: map[string]types.TaskDef{
			"build": {Enabled: true, BreakOnError: true},
			"lint":  {Enabled: true, BreakOnError: true},
			"doc":   {Enabled: true, BreakOnError: false},
		},
		Requestor: types.Requestor{UserName: "jdoe", FullName: "John Doe", Email: "jdoe@example.com"},
	}
}

func passResults() map[string]types.TaskResult {
	return map[string]types.TaskResult{
		"build": {TestPass: true},
		"lint":  {TestPass: true},
	}
}

func createTestRun(ctx context.Context, t *testing.T, ah *ActionHandler, config types.RunConfig, commitID string) *types.Run {
	run, err := ah.CreateRun(ctx, &CreateRunRequest{
		UpdateSetName:        "my update set",
		UpdateSetDescription: "some changes",
		CommitID:             commitID,
		Config:               config,
	})
	testutil.NilError(t, err)

	return run
}

func TestCompleteRunNotExist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, _ := setupActionHandler(ctx, t)

	_, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: "f6e20d3d-2e1c-4f53-a36b-dcd1f9b4e9f1"})
	assert.Assert(t, util.APIErrorIs(err, util.ErrNotExist))
}

func TestCompleteRunSucceed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, baseRunConfig(), "")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Equal(t, res.Decision, DecisionSucceed)
	assert.Equal(t, res.Run.State, types.RunStateSuccessful)
	assert.Equal(t, res.Run.Verdict, types.VerdictPass)

	assert.Equal(t, len(stubs.chat.complete), 1)
	assert.Equal(t, len(stubs.chat.failed), 0)
	assert.Equal(t, len(stubs.git.pullRequests), 0)
	assert.DeepEqual(t, stubs.progress.phases, []notify.ProgressPhase{notify.ProgressPhaseComplete})

	var deployJobs []*types.DeployJob
	var dbRun *types.Run
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJobs, err = d.GetQueuedDeployJobsAfterSequence(tx, 0, 0)
		if err != nil {
			return errors.WithStack(err)
		}

		dbRun, err = d.GetRun(tx, run.ID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, len(deployJobs), 0)

	assert.DeepEqual(t, dbRun, res.Run, cmpopts.IgnoreFields(sqlg.ObjectMeta{}, "TxID", "CreationTime", "UpdateTime"))
}

func TestCompleteRunFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, baseRunConfig(), "")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: map[string]types.TaskResult{
		"build": {TestPass: true},
		"lint":  {TestPass: false},
	}})
	testutil.NilError(t, err)

	assert.Equal(t, res.Decision, DecisionFail)
	assert.Equal(t, res.Run.State, types.RunStateBuildFailed)
	assert.Equal(t, res.Run.Verdict, types.VerdictFail)

	assert.Equal(t, len(stubs.chat.failed), 1)
	assert.Equal(t, len(stubs.chat.complete), 0)
	assert.Equal(t, len(stubs.git.pullRequests), 0)
	assert.DeepEqual(t, stubs.progress.phases, []notify.ProgressPhase{notify.ProgressPhaseFailed})

	assert.Equal(t, len(stubs.mailer.recipients), 1)
	assert.Equal(t, stubs.mailer.recipients[0], `"John Doe" <jdoe@example.com>`)
	assert.Equal(t, stubs.mailer.datas[0].Sequence, uint64(1))
	assert.Equal(t, stubs.mailer.datas[0].SourceUpdateSetName, "my update set")
}

func TestCompleteRunMissingGatingResultFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, _ := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, baseRunConfig(), "")

	// no result at all for the gating lint task
	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: map[string]types.TaskResult{
		"build": {TestPass: true},
	}})
	testutil.NilError(t, err)

	assert.Equal(t, res.Run.Verdict, types.VerdictFail)
	assert.Equal(t, res.Run.State, types.RunStateBuildFailed)
}

func prRunConfig() types.RunConfig {
	config := baseRunConfig()
	config.Git = types.GitConfig{
		Enabled:            true,
		PullRequestEnabled: true,
		Repository:         "myorg/myapp",
		BranchName:         "update-set-1",
	}

	return config
}

func TestCompleteRunRaisePullRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, prRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Equal(t, res.Decision, DecisionRaisePullRequest)
	assert.Equal(t, res.Run.State, types.RunStatePullRequestRaised)
	assert.Assert(t, !res.PullRequestAlreadyRaised)

	assert.Equal(t, len(stubs.git.pullRequests), 1)
	pr := stubs.git.pullRequests[0]
	assert.Equal(t, pr.Repository, "myorg/myapp")
	assert.Equal(t, pr.Head, "update-set-1")
	assert.Equal(t, pr.Base, "master")

	assert.DeepEqual(t, stubs.progress.phases, []notify.ProgressPhase{notify.ProgressPhaseCodeReviewPending})

	var updateSet *types.UpdateSet
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		updateSet, err = d.GetUpdateSet(tx, run.UpdateSetID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Assert(t, updateSet.PullRequestRaised)
}

func TestCompleteRunPullRequestRedelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, prRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)
	assert.Equal(t, res.Run.State, types.RunStatePullRequestRaised)

	// redelivered completion event for the same run
	res, err = ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Equal(t, res.Run.State, types.RunStatePullRequestRaised)
	assert.Assert(t, res.PullRequestAlreadyRaised)
	assert.Equal(t, len(stubs.git.pullRequests), 1)
}

func TestCompleteRunPullRequestAlreadyRaised(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, stubs := setupActionHandler(ctx, t)

	firstRun := createTestRun(ctx, t, ah, prRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: firstRun.ID, BuildResults: passResults()})
	testutil.NilError(t, err)
	assert.Equal(t, res.Run.State, types.RunStatePullRequestRaised)

	// a re-run for the same update set must not raise a second pull request
	rerun, err := ah.CreateRun(ctx, &CreateRunRequest{
		UpdateSetID: firstRun.UpdateSetID,
		CommitID:    "abc124",
		Config:      prRunConfig(),
	})
	testutil.NilError(t, err)
	assert.Equal(t, rerun.Sequence, uint64(2))

	res, err = ah.CompleteRun(ctx, &CompleteRunRequest{RunID: rerun.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Assert(t, res.PullRequestAlreadyRaised)
	// the re-run stays at build completed, there's nothing more to do for it
	assert.Equal(t, res.Run.State, types.RunStateBuildCompleted)
	assert.Equal(t, len(stubs.git.pullRequests), 1)
}

func TestCompleteRunPullRequestFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	stubs.git.prErr = errors.New("pull request api failure")

	run := createTestRun(ctx, t, ah, prRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	// the run stays retryable at build completed and the flag stays false
	assert.Equal(t, res.Run.State, types.RunStateBuildCompleted)
	assert.Equal(t, len(stubs.git.pullRequests), 0)

	var updateSet *types.UpdateSet
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		updateSet, err = d.GetUpdateSet(tx, run.UpdateSetID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Assert(t, !updateSet.PullRequestRaised)

	// after the api recovers a new completion event succeeds
	stubs.git.prErr = nil

	res, err = ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Equal(t, res.Run.State, types.RunStatePullRequestRaised)
	assert.Equal(t, len(stubs.git.pullRequests), 1)
}

func deployRunConfig() types.RunConfig {
	config := baseRunConfig()
	config.Deploy = types.DeployConfig{Enabled: true, OnBuildPass: true}

	return config
}

func TestCompleteRunDeploy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Equal(t, res.Decision, DecisionDeploy)
	assert.Equal(t, res.Run.State, types.RunStateSuccessful)

	assert.Assert(t, res.DeployJobHandle != nil)
	assert.Equal(t, res.DeployJobHandle.ExclusivityKey, "deploy-abc123")
	assert.Assert(t, !res.DeployJobHandle.Coalesced)

	// submission is fire and forget, the job is still queued
	assert.Equal(t, len(stubs.deployer.commits), 0)

	var deployJob *types.DeployJob
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJob, err = d.GetDeployJob(tx, res.DeployJobHandle.JobID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, deployJob.Status, types.DeployJobStatusQueued)
	assert.Equal(t, deployJob.Payload.CommitID, "abc123")
}

func TestCompleteRunDeployCoalesce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, _ := setupActionHandler(ctx, t)

	firstRun := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")
	secondRun := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")

	firstRes, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: firstRun.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	secondRes, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: secondRun.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Assert(t, !firstRes.DeployJobHandle.Coalesced)
	assert.Assert(t, secondRes.DeployJobHandle.Coalesced)
	assert.Equal(t, secondRes.DeployJobHandle.JobID, firstRes.DeployJobHandle.JobID)

	var deployJobs []*types.DeployJob
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJobs, err = d.GetDeployJobsByExclusivityKey(tx, "deploy-abc123")
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, len(deployJobs), 1)
}

func TestCompleteRunDeployCoalesceConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, _ := setupActionHandler(ctx, t)

	runs := []*types.Run{
		createTestRun(ctx, t, ah, deployRunConfig(), "abc123"),
		createTestRun(ctx, t, ah, deployRunConfig(), "abc123"),
	}

	results := make([]*CompleteRunResponse, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		g.Go(func() error {
			res, err := ah.CompleteRun(gctx, &CompleteRunRequest{RunID: runs[i].ID, BuildResults: passResults()})
			if err != nil {
				return errors.WithStack(err)
			}
			results[i] = res
			return nil
		})
	}
	testutil.NilError(t, g.Wait())

	// both submissions share the same job, exactly one was coalesced
	coalesced := 0
	for _, res := range results {
		assert.Assert(t, res.DeployJobHandle != nil)
		assert.Equal(t, res.DeployJobHandle.ExclusivityKey, "deploy-abc123")
		if res.DeployJobHandle.Coalesced {
			coalesced++
		}
	}
	assert.Equal(t, coalesced, 1)
	assert.Equal(t, results[0].DeployJobHandle.JobID, results[1].DeployJobHandle.JobID)

	var deployJobs []*types.DeployJob
	err := d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJobs, err = d.GetDeployJobsByExclusivityKey(tx, "deploy-abc123")
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, len(deployJobs), 1)
}

func TestCompleteRunPullRequestConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	firstRun := createTestRun(ctx, t, ah, prRunConfig(), "abc123")

	secondRun, err := ah.CreateRun(ctx, &CreateRunRequest{
		UpdateSetID: firstRun.UpdateSetID,
		CommitID:    "abc124",
		Config:      prRunConfig(),
	})
	testutil.NilError(t, err)

	runs := []*types.Run{firstRun, secondRun}
	results := make([]*CompleteRunResponse, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		g.Go(func() error {
			res, err := ah.CompleteRun(gctx, &CompleteRunRequest{RunID: runs[i].ID, BuildResults: passResults()})
			if err != nil {
				return errors.WithStack(err)
			}
			results[i] = res
			return nil
		})
	}
	testutil.NilError(t, g.Wait())

	// exactly one pull request was raised, the losing run short-circuited at
	// build completed
	assert.Equal(t, len(stubs.git.pullRequests), 1)

	raised := 0
	alreadyRaised := 0
	for _, res := range results {
		switch res.Run.State {
		case types.RunStatePullRequestRaised:
			raised++
		case types.RunStateBuildCompleted:
			alreadyRaised++
			assert.Assert(t, res.PullRequestAlreadyRaised)
		default:
			t.Fatalf("unexpected run state %q", res.Run.State)
		}
	}
	assert.Equal(t, raised, 1)
	assert.Equal(t, alreadyRaised, 1)

	var updateSet *types.UpdateSet
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		updateSet, err = d.GetUpdateSet(tx, firstRun.UpdateSetID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Assert(t, updateSet.PullRequestRaised)
}

func TestExecuteDeployJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	run := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	err = ah.ExecuteDeployJobs(ctx)
	testutil.NilError(t, err)

	assert.DeepEqual(t, stubs.deployer.commits, []string{"abc123"})

	var deployJob *types.DeployJob
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJob, err = d.GetDeployJob(tx, res.DeployJobHandle.JobID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, deployJob.Status, types.DeployJobStatusDone)
	assert.Assert(t, deployJob.FinishedAt != nil)

	// a later completion for the same commit submits a fresh job since the
	// previous one finished
	rerun := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")
	rerunRes, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: rerun.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	assert.Assert(t, !rerunRes.DeployJobHandle.Coalesced)
	assert.Assert(t, rerunRes.DeployJobHandle.JobID != res.DeployJobHandle.JobID)
}

func TestExecuteDeployJobsFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, d, stubs := setupActionHandler(ctx, t)

	stubs.deployer.err = errors.New("deployment endpoint failure")

	run := createTestRun(ctx, t, ah, deployRunConfig(), "abc123")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: passResults()})
	testutil.NilError(t, err)

	err = ah.ExecuteDeployJobs(ctx)
	testutil.NilError(t, err)

	var deployJob *types.DeployJob
	err = d.Do(ctx, func(tx *sql.Tx) error {
		var err error
		deployJob, err = d.GetDeployJob(tx, res.DeployJobHandle.JobID)
		return errors.WithStack(err)
	})
	testutil.NilError(t, err)
	assert.Equal(t, deployJob.Status, types.DeployJobStatusFailed)
	assert.Assert(t, deployJob.FinishedAt != nil)
}

func TestCompleteRunNotificationFailuresDontAbort(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ah, _, stubs := setupActionHandler(ctx, t)

	stubs.chat.err = errors.New("chat endpoint failure")
	stubs.mailer.err = errors.New("smtp failure")

	run := createTestRun(ctx, t, ah, baseRunConfig(), "")

	res, err := ah.CompleteRun(ctx, &CompleteRunRequest{RunID: run.ID, BuildResults: map[string]types.TaskResult{}})
	testutil.NilError(t, err)

	// the run still reaches its terminal state and the email step was
	// attempted after the chat failure
	assert.Equal(t, res.Run.State, types.RunStateBuildFailed)
	assert.Equal(t, len(stubs.chat.failed), 1)
	assert.Equal(t, len(stubs.mailer.recipients), 1)
}
