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

package gitea

import (
	"context"
	"crypto/tls"
	"net/http"

	"code.gitea.io/sdk/gitea"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/gitprovider"
)

type Opts struct {
	APIURL     string
	Token      string
	SkipVerify bool
}

type Client struct {
	client *gitea.Client
}

func New(opts Opts) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipVerify},
	}
	httpClient := &http.Client{Transport: transport}

	client, err := gitea.NewClient(opts.APIURL, gitea.SetToken(opts.Token), gitea.SetHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create gitea client")
	}

	return &Client{client: client}, nil
}

func fromCommitState(state gitprovider.CommitState) gitea.StatusState {
	switch state {
	case gitprovider.CommitStatePending:
		return gitea.StatusPending
	case gitprovider.CommitStateSuccess:
		return gitea.StatusSuccess
	case gitprovider.CommitStateFailed:
		return gitea.StatusFailure
	default:
		return gitea.StatusError
	}
}

func (c *Client) CreatePullRequest(ctx context.Context, opts gitprovider.CreatePullRequestOpts) (*gitprovider.PullRequest, error) {
	owner, repo, err := gitprovider.SplitRepositoryPath(opts.Repository)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pr, _, err := c.client.CreatePullRequest(owner, repo, gitea.CreatePullRequestOption{
		Head:  opts.Head,
		Base:  opts.Base,
		Title: opts.Title,
		Body:  opts.Description,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create pull request")
	}

	return &gitprovider.PullRequest{Number: int(pr.Index), WebURL: pr.HTMLURL}, nil
}

func (c *Client) CreateCommitStatus(ctx context.Context, repository, commitSHA string, state gitprovider.CommitState, targetURL, description, statusContext string) error {
	owner, repo, err := gitprovider.SplitRepositoryPath(repository)
	if err != nil {
		return errors.WithStack(err)
	}

	_, _, err = c.client.CreateStatus(owner, repo, commitSHA, gitea.CreateStatusOption{
		State:       fromCommitState(state),
		TargetURL:   targetURL,
		Description: description,
		Context:     statusContext,
	})

	return errors.WithStack(err)
}
