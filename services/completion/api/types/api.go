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

package types

import (
	"time"

	ctypes "github.com/conveyorci/conveyor/services/completion/types"
)

type CreateRunRequest struct {
	// UpdateSetID references an existing update set. When empty a new
	// update set is created from UpdateSetName and UpdateSetDescription.
	UpdateSetID          string `json:"updateSetId,omitempty"`
	UpdateSetName        string `json:"updateSetName,omitempty"`
	UpdateSetDescription string `json:"updateSetDescription,omitempty"`

	CommitID string `json:"commitId,omitempty"`

	Config ctypes.RunConfig `json:"config"`
}

type RunResponse struct {
	ID          string `json:"id"`
	Sequence    uint64 `json:"sequence"`
	UpdateSetID string `json:"updateSetId"`
	CommitID    string `json:"commitId,omitempty"`
	State       string `json:"state"`
	Verdict     string `json:"verdict"`

	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// CompleteBuildRequest is the inbound build completion event.
type CompleteBuildRequest struct {
	RunID string `json:"runId"`

	// BuildResult maps task names to their runtime outcome.
	BuildResult map[string]BuildTaskResult `json:"buildResult"`
}

type BuildTaskResult struct {
	TestPass bool `json:"testPass"`
}

type CompleteBuildResponse struct {
	Run *RunResponse `json:"run"`

	// Decision is the downstream action the engine dispatched, one of
	// "fail", "raise_pull_request", "deploy", "succeed".
	Decision string `json:"decision"`

	// PullRequestAlreadyRaised reports that the pull request path was a
	// no-op because a pull request was already raised for the update set.
	PullRequestAlreadyRaised bool `json:"pullRequestAlreadyRaised,omitempty"`

	DeployJob *DeployJobHandleResponse `json:"deployJob,omitempty"`
}

type DeployJobHandleResponse struct {
	ID             string    `json:"id"`
	ExclusivityKey string    `json:"exclusivityKey"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Coalesced      bool      `json:"coalesced"`
}

type DeployJobResponse struct {
	ID             string     `json:"id"`
	Sequence       uint64     `json:"sequence"`
	Name           string     `json:"name"`
	ExclusivityKey string     `json:"exclusivityKey"`
	Description    string     `json:"description,omitempty"`
	CommitID       string     `json:"commitId"`
	Status         string     `json:"status"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}
