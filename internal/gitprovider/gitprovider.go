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

package gitprovider

import (
	"context"
	"strings"

	"github.com/sorintlab/errors"
)

type CommitState string

const (
	CommitStatePending CommitState = "pending"
	CommitStateSuccess CommitState = "success"
	CommitStateError   CommitState = "error"
	CommitStateFailed  CommitState = "failed"
)

// CreatePullRequestOpts describes the pull request to open. Repository is
// in "owner/name" form, Head and Base are branch names.
type CreatePullRequestOpts struct {
	Repository  string
	Head        string
	Base        string
	Title       string
	Description string
}

type PullRequest struct {
	Number int
	WebURL string
}

// Client is a git hosting provider client. Implementations exist for gitea,
// github and gitlab.
type Client interface {
	CreatePullRequest(ctx context.Context, opts CreatePullRequestOpts) (*PullRequest, error)
	CreateCommitStatus(ctx context.Context, repository, commitSHA string, state CommitState, targetURL, description, statusContext string) error
}

// SplitRepositoryPath splits an "owner/name" repository path.
func SplitRepositoryPath(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("wrong repository path: %q", repository)
	}

	return parts[0], parts[1], nil
}
