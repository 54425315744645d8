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
	"github.com/sorintlab/errors"
)

// RunConfig is the immutable configuration snapshot of a run. It's
// validated once at run creation and at load so the dispatch branches never
// have to probe for missing values.
type RunConfig struct {
	Application ApplicationConfig `json:"application"`
	Host        HostConfig        `json:"host"`

	// Tasks are the build task definitions, keyed by task name.
	Tasks map[string]TaskDef `json:"tasks"`

	Git    GitConfig    `json:"git"`
	Deploy DeployConfig `json:"deploy"`

	Requestor Requestor `json:"requestor"`
}

type ApplicationConfig struct {
	Name string `json:"name"`

	// DocURL points to the application build documentation, embedded in
	// notification messages.
	DocURL string `json:"doc_url,omitempty"`
}

type HostConfig struct {
	// Name is the source host name used for link construction.
	Name string `json:"name"`
}

// TaskDef is a build task definition. BreakOnError marks the task as
// gating: its failure fails the whole run.
type TaskDef struct {
	Enabled      bool `json:"enabled"`
	BreakOnError bool `json:"break_on_error"`
}

type GitConfig struct {
	Enabled            bool `json:"enabled"`
	PullRequestEnabled bool `json:"pull_request_enabled"`

	Repository string `json:"repository,omitempty"`
	BranchName string `json:"branch_name,omitempty"`

	// TargetBranch is the pull request target. Empty means "master".
	TargetBranch string `json:"target_branch,omitempty"`
}

func (c *GitConfig) PullRequestTarget() string {
	if c.TargetBranch != "" {
		return c.TargetBranch
	}
	return "master"
}

type DeployConfig struct {
	Enabled     bool `json:"enabled"`
	OnBuildPass bool `json:"on_build_pass"`
}

type Requestor struct {
	UserName string `json:"user_name"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (c *RunConfig) Validate() error {
	if c.Application.Name == "" {
		return errors.Errorf("empty application name")
	}
	if c.Host.Name == "" {
		return errors.Errorf("empty host name")
	}
	if c.Git.Enabled && c.Git.PullRequestEnabled {
		if c.Git.Repository == "" {
			return errors.Errorf("git pull request enabled but empty repository")
		}
		if c.Git.BranchName == "" {
			return errors.Errorf("git pull request enabled but empty branch name")
		}
	}

	return nil
}
