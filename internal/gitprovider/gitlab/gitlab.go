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

package gitlab

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/sorintlab/errors"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/conveyorci/conveyor/internal/gitprovider"
)

type Opts struct {
	APIURL     string
	Token      string
	SkipVerify bool
}

type Client struct {
	client *gitlab.Client
}

func New(opts Opts) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipVerify},
	}
	httpClient := &http.Client{Transport: transport}

	options := []gitlab.ClientOptionFunc{gitlab.WithHTTPClient(httpClient)}
	if opts.APIURL != "" {
		options = append(options, gitlab.WithBaseURL(opts.APIURL))
	}

	client, err := gitlab.NewClient(opts.Token, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create gitlab client")
	}

	return &Client{client: client}, nil
}

func fromCommitState(state gitprovider.CommitState) gitlab.BuildStateValue {
	switch state {
	case gitprovider.CommitStatePending:
		return gitlab.Pending
	case gitprovider.CommitStateSuccess:
		return gitlab.Success
	default:
		return gitlab.Failed
	}
}

func (c *Client) CreatePullRequest(ctx context.Context, opts gitprovider.CreatePullRequestOpts) (*gitprovider.PullRequest, error) {
	mr, _, err := c.client.MergeRequests.CreateMergeRequest(opts.Repository, &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(opts.Title),
		Description:  gitlab.Ptr(opts.Description),
		SourceBranch: gitlab.Ptr(opts.Head),
		TargetBranch: gitlab.Ptr(opts.Base),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create merge request")
	}

	return &gitprovider.PullRequest{Number: mr.IID, WebURL: mr.WebURL}, nil
}

func (c *Client) CreateCommitStatus(ctx context.Context, repository, commitSHA string, state gitprovider.CommitState, targetURL, description, statusContext string) error {
	_, _, err := c.client.Commits.SetCommitStatus(repository, commitSHA, &gitlab.SetCommitStatusOptions{
		State:       fromCommitState(state),
		TargetURL:   gitlab.Ptr(targetURL),
		Description: gitlab.Ptr(description),
		Context:     gitlab.Ptr(statusContext),
	}, gitlab.WithContext(ctx))

	return errors.WithStack(err)
}
